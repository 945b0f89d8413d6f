package config

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "AUTH_MODE", "LAYOUT", "WRITE_TIMEOUT", "NOTICE_DURATION", "LOG_LEVEL", "TIMEZONE"} {
		_ = os.Unsetenv(Prefix + "_" + key)
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, AuthFirebase, cfg.AuthMode)
	assert.Equal(t, "shared", cfg.Layout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 3*time.Second, cfg.NoticeDuration)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
}

func TestNew_EnvOverride(t *testing.T) {
	t.Setenv("TASKMATE_PORT", "9000")
	t.Setenv("TASKMATE_AUTH_MODE", "jwt")
	t.Setenv("TASKMATE_JWT_SECRET_KEY", "s3cret")
	t.Setenv("TASKMATE_LAYOUT", "legacy")
	t.Setenv("TASKMATE_WRITE_TIMEOUT", "2s")
	t.Setenv("TASKMATE_TIMEZONE", "Asia/Bangkok")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, AuthJWT, cfg.AuthMode)
	assert.Equal(t, "legacy", cfg.Layout)
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Bangkok", loc.String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"ok", func(*Config) {}, ""},
		{"jwt without secret", func(c *Config) { c.JWTSecretKey = "" }, "JWT_SECRET_KEY"},
		{"unknown auth", func(c *Config) { c.AuthMode = "basic" }, "AUTH_MODE"},
		{"unknown layout", func(c *Config) { c.Layout = "nested" }, "LAYOUT"},
		{"zero timeout", func(c *Config) { c.WriteTimeout = 0 }, "WRITE_TIMEOUT"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "TIMEZONE"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewForTesting()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
