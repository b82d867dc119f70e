package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config holds all agent configuration, sourced from environment variables.
type Config struct {
	// APIBaseURL is the Foodify backend REST endpoint.
	APIBaseURL string `env:"FOODIFY_API_URL" validate:"required,url"`
	// RealtimeURL is the realtime websocket endpoint. When empty it is
	// derived from APIBaseURL with the /ws suffix.
	RealtimeURL string `env:"FOODIFY_REALTIME_URL" validate:"omitempty,url"`

	// VaultPath is the file the credential vault persists to.
	VaultPath string `env:"FOODIFY_VAULT_PATH" envDefault:"foodify-session.json"`
	// VaultRedisAddr, when set, switches the credential vault to Redis.
	VaultRedisAddr string `env:"FOODIFY_VAULT_REDIS_ADDR"`
	VaultRedisKey  string `env:"FOODIFY_VAULT_REDIS_KEY" envDefault:"foodify:agent:session"`

	OpsAddr  string `env:"OPS_ADDR" envDefault:":9464"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	HTTPMaxRetries int           `env:"HTTP_MAX_RETRIES" envDefault:"3" validate:"gte=0,lte=10"`

	ReconnectMinDelay time.Duration `env:"REALTIME_RECONNECT_MIN" envDefault:"1s"`
	ReconnectMaxDelay time.Duration `env:"REALTIME_RECONNECT_MAX" envDefault:"30s"`

	// AlertDedup collapses repeated new-order pushes with the same order id
	// into a single pending alert.
	AlertDedup bool `env:"ALERT_DEDUP" envDefault:"false"`

	TracingEnabled bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSample    float64 `env:"OTEL_TRACE_SAMPLE" envDefault:"1.0" validate:"gte=0,lte=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load parses environment variables into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.RealtimeURL == "" {
		cfg.RealtimeURL = deriveRealtimeURL(cfg.APIBaseURL)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// deriveRealtimeURL turns the REST base URL into the websocket endpoint:
// scheme swapped to ws(s) and the fixed /ws path appended.
func deriveRealtimeURL(base string) string {
	u := strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}
