package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(1024), cfg.MaxTokens)
	assert.Equal(t, "https://overpass-api.de/api/interpreter", cfg.OverpassURL)
	assert.True(t, cfg.UseSimulated)
	assert.Equal(t, 16, cfg.LearnQueueSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CONCIERGE_MAX_TOKENS", "256")
	t.Setenv("CONCIERGE_USE_SIMULATED", "false")
	t.Setenv("CONCIERGE_LAT", "51.5072")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(256), cfg.MaxTokens)
	assert.False(t, cfg.UseSimulated)
	assert.InDelta(t, 51.5072, cfg.Lat, 1e-9)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("CONCIERGE_MAX_TOKENS", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}
