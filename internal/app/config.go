package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	HostPath string // host plan, hcl

	LogFormat   string
	LogLevel    string
	MetricsPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.HostPath == "" {
		return nil, errors.New("HostPath is a required configuration field and cannot be empty")
	}

	return &cfg, nil
}
