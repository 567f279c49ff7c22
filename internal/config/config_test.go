package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	req := require.New(t)

	cfg, err := Load()
	req.NoError(err)

	req.Equal(":8080", cfg.Addr)
	req.Equal("info", cfg.LogLevel)
	req.Empty(cfg.AllowedOrigins)
	req.Equal(256, cfg.SendBuffer)
	req.Equal(5*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	req := require.New(t)

	t.Setenv("CAMUS_ADDR", ":9999")
	t.Setenv("CAMUS_LOG_LEVEL", "debug")
	t.Setenv("CAMUS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	req.NoError(err)

	req.Equal(":9999", cfg.Addr)
	req.Equal("debug", cfg.LogLevel)
	req.Equal([]string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}
