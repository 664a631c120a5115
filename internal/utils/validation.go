// Package utils holds small input-validation helpers shared by the
// transport layer.
package utils

import (
	"fmt"

	"github.com/wavetermdev/tabhost/internal/types"
)

// Geometry limits (in pixels)
const (
	MinWindowWidth  = 100
	MinWindowHeight = 100
	MaxWindowDim    = 16384 // largest dimension any compositor will take
	MaxCoordinate   = 1 << 24
)

// ValidateOuterBounds checks that window bounds supplied by a client are
// usable before they reach the lifecycle layer.
func ValidateOuterBounds(b types.Bounds) error {
	if b.Width < MinWindowWidth || b.Height < MinWindowHeight {
		return fmt.Errorf("window size %dx%d below minimum %dx%d",
			b.Width, b.Height, MinWindowWidth, MinWindowHeight)
	}
	if b.Width > MaxWindowDim || b.Height > MaxWindowDim {
		return fmt.Errorf("window size %dx%d exceeds maximum dimension %d",
			b.Width, b.Height, MaxWindowDim)
	}
	if b.X < -MaxCoordinate || b.X > MaxCoordinate || b.Y < -MaxCoordinate || b.Y > MaxCoordinate {
		return fmt.Errorf("window origin (%d,%d) out of range", b.X, b.Y)
	}
	return nil
}
