package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultImportMaxBytes, cfg.ImportMaxBytes)
	assert.Equal(t, DefaultImportMaxLines, cfg.ImportMaxLines)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("IMPORT_MAX_BYTES", "2048")
	t.Setenv("IMPORT_MAX_LINES", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 2048, cfg.ImportMaxBytes)
	assert.Equal(t, 50, cfg.ImportMaxLines)
}

func TestLoadRejectsBadCeilings(t *testing.T) {
	t.Setenv("IMPORT_MAX_BYTES", "not-a-number")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("IMPORT_MAX_BYTES", "0")
	_, err = Load()
	require.Error(t, err)
}
