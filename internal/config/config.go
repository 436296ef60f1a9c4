package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	SessionConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetAPIURL() string
	GetAPITimeout() time.Duration
	GetLogLevel() string
	GetEnv() string
	IsProduction() bool
}

type mainConfig struct {
	EnvVars
	Session
	Security
}

// New loads the configuration from the environment and validates it.
func New() (Config, error) {
	c := mainConfig{}
	if err := env.Parse(&c.EnvVars); err != nil {
		return nil, fmt.Errorf("[config New] parse env: %w", err)
	}
	if err := env.Parse(&c.Session); err != nil {
		return nil, fmt.Errorf("[config New] parse session env: %w", err)
	}
	if err := env.Parse(&c.Security); err != nil {
		return nil, fmt.Errorf("[config New] parse security env: %w", err)
	}
	c.Session.production = c.EnvVars.IsProduction()

	if err := c.Session.validate(); err != nil {
		return nil, fmt.Errorf("[config New] %w", err)
	}
	return c, nil
}
