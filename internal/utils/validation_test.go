package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wavetermdev/tabhost/internal/types"
)

func TestValidateOuterBounds(t *testing.T) {
	tests := []struct {
		name    string
		bounds  types.Bounds
		wantErr bool
	}{
		{"typical window", types.Bounds{X: 100, Y: 50, Width: 1280, Height: 800}, false},
		{"minimum size", types.Bounds{Width: 100, Height: 100}, false},
		{"too narrow", types.Bounds{Width: 99, Height: 600}, true},
		{"too short", types.Bounds{Width: 800, Height: 10}, true},
		{"zero size", types.Bounds{}, true},
		{"absurd width", types.Bounds{Width: 100000, Height: 600}, true},
		{"negative origin ok", types.Bounds{X: -200, Y: -50, Width: 800, Height: 600}, false},
		{"origin out of range", types.Bounds{X: 1 << 30, Width: 800, Height: 600}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOuterBounds(tt.bounds)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
