package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\ntick_interval: 2s\n"), 0o600))

	cfg := Default()
	require.NoError(t, Load(path, &cfg))
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	assert.Equal(t, "finsim.db", cfg.DBPath) // untouched default
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_interval: -5s\n"), 0o600))

	cfg := Default()
	err := Load(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_interval")
}

func TestLoadMissingFile(t *testing.T) {
	cfg := Default()
	assert.Error(t, Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg))
}

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
