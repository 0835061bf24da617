package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"segment-reshape/internal/topology"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, topology.DefaultEpsilon, cfg.Matching.Epsilon)
	require.Equal(t, topology.DefaultTriggerTolerance, cfg.Matching.TriggerTolerance)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.Matching.Epsilon = 1e-6
	cfg.Editing.DefaultZ = -999
	cfg.Logging.Level = "debug"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("matching:\n  epsilon: 0.5\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 0.5, cfg.Matching.Epsilon)
	// Untouched keys keep their defaults
	require.Equal(t, topology.DefaultTriggerTolerance, cfg.Matching.TriggerTolerance)
}

func TestOptionBridges(t *testing.T) {
	cfg := Default()
	cfg.Matching.Epsilon = 1e-5
	cfg.Editing.DefaultZ = 3

	mo := cfg.MatcherOptions()
	require.Equal(t, 1e-5, mo.Epsilon)

	eo := cfg.EditorOptions()
	require.Equal(t, 1e-5, eo.Epsilon)
	require.Equal(t, 3.0, eo.DefaultZ)
}
