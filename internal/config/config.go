package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the relay's runtime configuration. Every field has a
// default so a zero-config run works for development.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `envconfig:"ADDR" default:":8080"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// AllowedOrigins restricts websocket upgrades to the listed Origin
	// headers. Empty means allow all (development).
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`

	// SendBuffer is the per-connection outbound queue size. Events beyond
	// it are dropped for that connection only.
	SendBuffer int `envconfig:"SEND_BUFFER" default:"256"`

	// InboundRate and InboundBurst throttle messages read from one
	// connection, in messages per second.
	InboundRate  float64 `envconfig:"INBOUND_RATE" default:"20"`
	InboundBurst int     `envconfig:"INBOUND_BURST" default:"40"`

	// ShutdownTimeout bounds the graceful HTTP shutdown.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load reads configuration from the environment, after loading an optional
// .env file. Variables are prefixed with CAMUS_, e.g. CAMUS_ADDR.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("camus", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
