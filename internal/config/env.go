package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rgehrsitz/paytax/internal/domain"
)

// EnvPrefix is prepended to every environment variable the server reads
const EnvPrefix = "PAYTAX_"

// LoadConfig loads the server configuration from PAYTAX_* environment variables
func LoadConfig() (*domain.Config, error) {
	var cfg domain.Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.Repository.Driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Repository.Driver)
	}
	switch cfg.Cache.Type {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unsupported cache type %q", cfg.Cache.Type)
	}

	return &cfg, nil
}
