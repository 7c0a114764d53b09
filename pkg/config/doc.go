// Package config loads application configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11 so every
// component declares its configuration as a plain struct with `env` tags and
// loads it with a single call:
//
//	type GatewayConfig struct {
//	    ProjectID string        `env:"FCM_PROJECT_ID,required"`
//	    Timeout   time.Duration `env:"FCM_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg GatewayConfig
//	config.MustLoad(&cfg)
//
// Sentinel errors (ErrParsingConfig, ErrNilPointer) can be matched with
// errors.Is when finer-grained handling is needed.
package config
