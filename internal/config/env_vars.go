package config

import (
	"fmt"
	"strings"
	"time"
)

// EnvVars holds the process level settings read from the environment.
type EnvVars struct {
	Port       string        `env:"PORT" envDefault:"8080"`
	AppName    string        `env:"APP_NAME" envDefault:"Go Auth Web"`
	BaseURL    string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	APIURL     string        `env:"API_URL" envDefault:"http://localhost:8000/api"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	LogLevel   string        `env:"LOG_LEVEL" envDefault:"info"`
	Env        string        `env:"ENV" envDefault:"DEV"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port == "" {
		port = "8080"
	}
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

// GetBaseURL returns the public URL of this web front end (e.g., "https://app.example.com")
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.BaseURL, "/")
}

// GetAPIURL returns the base URL of the remote authentication API, without a trailing slash.
func (e EnvVars) GetAPIURL() string {
	return strings.TrimSuffix(e.APIURL, "/")
}

func (e EnvVars) GetAPITimeout() time.Duration {
	return e.APITimeout
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) IsProduction() bool {
	switch strings.ToLower(e.GetEnv()) {
	case "prod", "production":
		return true
	}
	return false
}
