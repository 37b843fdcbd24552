package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultGrid(), cfg.Grid)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Client.MaxRetries)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
grid:
  total_range: 240
  base_step: 5
  profit_targets: [1000]
logger:
  level: debug
  format: json
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o644))

	loader := NewLoader(dir)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 240.0, cfg.Grid.TotalRange)
	assert.Equal(t, 5.0, cfg.Grid.BaseStep)
	assert.Equal(t, []float64{1000}, cfg.Grid.ProfitTargets)
	// Untouched keys keep their defaults.
	assert.Equal(t, 100.0, cfg.Grid.UnitsPerLot)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.NotEmpty(t, loader.ConfigFileUsed())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("GRID_TOTAL_RANGE", "320")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 320.0, cfg.Grid.TotalRange)
}

func TestLoadConfig_InvalidGrid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("grid:\n  base_step: 0\n"), 0o644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "base_step")
}

func TestGridValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(g *Grid)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(g *Grid) {}},
		{name: "zero range", mutate: func(g *Grid) { g.TotalRange = 0 }, wantErr: "total_range"},
		{name: "negative step", mutate: func(g *Grid) { g.BaseStep = -10 }, wantErr: "base_step"},
		{name: "zero default lot", mutate: func(g *Grid) { g.DefaultLot = 0 }, wantErr: "default_lot"},
		{name: "zero units", mutate: func(g *Grid) { g.UnitsPerLot = 0 }, wantErr: "units_per_lot"},
		{name: "zero capital", mutate: func(g *Grid) { g.ReferenceCapital = 0 }, wantErr: "reference_capital"},
		{name: "zero multiplier", mutate: func(g *Grid) { g.InitialMultiplier = 0 }, wantErr: "initial_multiplier"},
		{name: "negative prefix", mutate: func(g *Grid) { g.RebalancePrefix = -1 }, wantErr: "rebalance_prefix"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := DefaultGrid()
			tc.mutate(&g)
			err := g.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoader_WatchReloadsGrid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("grid:\n  total_range: 480\n"), 0o644))

	loader := NewLoader(dir)
	_, err := loader.Load()
	require.NoError(t, err)

	reloaded := make(chan Config, 16)
	loader.Watch(func(cfg Config, _ fsnotify.Event) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, nil)

	require.NoError(t, os.WriteFile(path, []byte("grid:\n  total_range: 240\n"), 0o644))

	// A single write can surface as several events; wait for the final content.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Grid.TotalRange == 240 {
				return
			}
		case <-timeout:
			t.Fatal("config change was not picked up")
		}
	}
}
