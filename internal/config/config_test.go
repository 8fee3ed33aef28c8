package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.AutoOpen = false
	cfg.DefaultMode = ModeWindow
	cfg.HydrateCount = 120
	cfg.LocalWorld = 34

	require.NoError(t, Save(dir, cfg))
	got, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestValidate_Clamps(t *testing.T) {
	cfg := &Config{DefaultMode: "sideways", HydrateCount: -3}
	require.NoError(t, cfg.Validate())
	require.Equal(t, ModeTab, cfg.DefaultMode)
	require.Equal(t, 50, cfg.HydrateCount)

	cfg.HydrateCount = 99999
	require.NoError(t, cfg.Validate())
	require.Equal(t, 1000, cfg.HydrateCount)
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte("{nope"), 0644))
	_, err := Load(dir)
	require.Error(t, err)
}

func TestGeometryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	g, err := LoadGeometry(dir)
	require.NoError(t, err)

	g.Put("Foo Bar", 3, WindowState{X: 10, Y: 20, Width: 300, Height: 200})
	g.SetOpen("Foo Bar", 3, true)
	g.SetOpen("Baz", 1, false)
	require.NoError(t, g.Save())

	g2, err := LoadGeometry(dir)
	require.NoError(t, err)

	st, ok := g2.Get("foo bar", 3) // key is case-insensitive on name
	require.True(t, ok)
	require.Equal(t, WindowState{Name: "Foo Bar", X: 10, Y: 20, Width: 300, Height: 200, Open: true}, st)

	// Restore keys carry the display-cased name even though the map key
	// lowercases it.
	keys := g2.OpenKeys()
	require.Len(t, keys, 1)
	require.Equal(t, WindowKey{Name: "Foo Bar", World: 3}, keys[0])

	// Same name on a different world is a distinct entry.
	_, ok = g2.Get("Foo Bar", 4)
	require.False(t, ok)
}

func TestSetOpen_PreservesGeometry(t *testing.T) {
	g := &GeometryStore{dir: t.TempDir(), states: make(map[string]WindowState)}
	g.Put("Foo", 1, WindowState{X: 5, Y: 6, Width: 7, Height: 8, Open: true})
	g.SetOpen("Foo", 1, false)
	st, ok := g.Get("Foo", 1)
	require.True(t, ok)
	require.Equal(t, WindowState{Name: "Foo", X: 5, Y: 6, Width: 7, Height: 8, Open: false}, st)
}

func TestOpenKeys_LegacyEntryFallsBackToKeyCase(t *testing.T) {
	// Entries written before the display name was stored carry no Name.
	g := &GeometryStore{dir: t.TempDir(), states: map[string]WindowState{
		"foo bar@3": {Open: true},
	}}
	keys := g.OpenKeys()
	require.Len(t, keys, 1)
	require.Equal(t, WindowKey{Name: "foo bar", World: 3}, keys[0])
}

func TestOpenKeys_StableOrder(t *testing.T) {
	g := &GeometryStore{dir: t.TempDir(), states: make(map[string]WindowState)}
	g.SetOpen("Bravo", 2, true)
	g.SetOpen("Alpha", 1, true)
	g.SetOpen("Charlie", 3, false)

	keys := g.OpenKeys()
	require.Equal(t, []WindowKey{{Name: "Alpha", World: 1}, {Name: "Bravo", World: 2}}, keys)
}
