package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/types"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tabhost.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFullConfigDefaultsWhenEmpty(t *testing.T) {
	db := openTestDB(t)

	cfg, err := db.FullConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), cfg)
}

func TestSaveAndReadConfig(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	want := AppConfig{Theme: "dark", TabBarHeight: 40, ZoomFactor: 1.25}
	require.NoError(t, db.SaveConfig(ctx, want))

	got, err := db.FullConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Second save overwrites, not duplicates.
	want.Theme = "light"
	require.NoError(t, db.SaveConfig(ctx, want))
	got, err = db.FullConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "light", got.Theme)
}

func TestActiveTabRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	winID := id.NewWindowID()

	_, err := db.ActiveTab(ctx, winID)
	assert.ErrorIs(t, err, ErrNotFound)

	tab1, tab2 := id.NewTabID(), id.NewTabID()
	require.NoError(t, db.SetActiveTab(ctx, winID, tab1))
	require.NoError(t, db.SetActiveTab(ctx, winID, tab2))

	got, err := db.ActiveTab(ctx, winID)
	require.NoError(t, err)
	assert.Equal(t, tab2, got)
}

func TestGeometryAndActiveTabShareRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	winID := id.NewWindowID()

	bounds := types.Bounds{X: 10, Y: 20, Width: 1280, Height: 800}
	require.NoError(t, db.SaveWindowGeometry(ctx, winID, bounds))
	require.NoError(t, db.SetActiveTab(ctx, winID, id.NewTabID()))

	// Updating the active tab must not clobber stored geometry.
	got, err := db.WindowGeometry(ctx, winID)
	require.NoError(t, err)
	assert.Equal(t, bounds, got)
}

func TestWindowGeometryNotFound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.WindowGeometry(ctx, id.NewWindowID())
	assert.ErrorIs(t, err, ErrNotFound)

	// A row created by SetActiveTab alone has no usable geometry.
	winID := id.NewWindowID()
	require.NoError(t, db.SetActiveTab(ctx, winID, id.NewTabID()))
	_, err = db.WindowGeometry(ctx, winID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteWindow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	winID := id.NewWindowID()

	require.NoError(t, db.SaveWindowGeometry(ctx, winID, types.Bounds{Width: 800, Height: 600}))
	require.NoError(t, db.SetActiveTab(ctx, winID, id.NewTabID()))
	require.NoError(t, db.DeleteWindow(ctx, winID))

	_, err := db.WindowGeometry(ctx, winID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.ActiveTab(ctx, winID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an unknown window is not an error.
	assert.NoError(t, db.DeleteWindow(ctx, id.NewWindowID()))
}

func TestMemoryFailureInjection(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	winID := id.NewWindowID()

	require.NoError(t, m.SetActiveTab(ctx, winID, id.NewTabID()))

	boom := assert.AnError
	m.SetFail(boom)
	_, err := m.FullConfig(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.SetActiveTab(ctx, winID, id.NewTabID()), boom)

	m.SetFail(nil)
	_, err = m.FullConfig(ctx)
	assert.NoError(t, err)
}
