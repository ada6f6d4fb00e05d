package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Zero(t, s.Workers)
	assert.EqualValues(t, 256<<20, s.CacheMaxBytes)
	assert.Equal(t, 10000, s.MCIterations)
	assert.Equal(t, 24*time.Hour, s.RedisTTL)
	assert.Empty(t, s.RedisAddr)
}

func TestLoadSettingsFromEnv(t *testing.T) {
	t.Setenv("WEALTHSIM_WORKERS", "4")
	t.Setenv("WEALTHSIM_CACHE_MAX_BYTES", "1048576")
	t.Setenv("WEALTHSIM_MC_ITERATIONS", "2500")
	t.Setenv("WEALTHSIM_REDIS_ADDR", "localhost:6379")
	t.Setenv("WEALTHSIM_REDIS_TTL", "90m")
	t.Setenv("WEALTHSIM_RULES_DIR", "/etc/wealthsim/rules")
	t.Setenv("WEALTHSIM_OTEL_ENDPOINT", "http://localhost:4318")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, Settings{
		Workers:       4,
		CacheMaxBytes: 1 << 20,
		MCIterations:  2500,
		RedisAddr:     "localhost:6379",
		RedisTTL:      90 * time.Minute,
		RulesDir:      "/etc/wealthsim/rules",
		OTelEndpoint:  "http://localhost:4318",
	}, s)
}

func TestLoadSettingsRejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unparseable", "WEALTHSIM_WORKERS", "many"},
		{"negative workers", "WEALTHSIM_WORKERS", "-1"},
		{"zero iterations", "WEALTHSIM_MC_ITERATIONS", "0"},
		{"zero cache", "WEALTHSIM_CACHE_MAX_BYTES", "0"},
		{"bad ttl", "WEALTHSIM_REDIS_TTL", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadSettings()
			assert.Error(t, err)
		})
	}
}
