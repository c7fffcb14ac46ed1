package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	APIBaseURL string `env:"TEST_API_BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel   string `env:"TEST_LOG_LEVEL" envDefault:"info"`
	CartTTL    int    `env:"TEST_CART_TTL_HOURS" envDefault:"168"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 168, cfg.CartTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TEST_API_BASE_URL", "https://api.agrovenca.test")
	t.Setenv("TEST_LOG_LEVEL", "debug")
	t.Setenv("TEST_CART_TTL_HOURS", "24")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "https://api.agrovenca.test", cfg.APIBaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 24, cfg.CartTTL)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("TEST_CART_TTL_HOURS", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
