package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "./data", cfg.Store.Path)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("STACKS_PORT", "9999")

	cfg, err := Load([]string{"-port", "4001"})
	require.NoError(t, err)
	assert.Equal(t, "4001", cfg.Server.Port)
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("STACKS_PORT", "9999")
	t.Setenv("STACKS_ENV", "production")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "production", cfg.App.Environment)
}

func TestLoad_TokenDuration(t *testing.T) {
	cfg, err := Load([]string{"-token-duration", "30m"})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenDuration)
}

func TestLoad_BadTokenDuration(t *testing.T) {
	_, err := Load([]string{"-token-duration", "soon"})
	assert.Error(t, err)
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	_, err := Load([]string{"-env-file", "/definitely/not/here.env"})
	assert.Error(t, err)
}
