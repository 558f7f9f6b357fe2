package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/pipecheck/internal/dataid"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	RepoPath  string // directory or single .hcl file
	Selectors []dataid.Selector

	LogFormat       string
	LogLevel        string
	Processes       int
	DoRaise         bool
	MetricsFile     string
	HealthcheckPort int

	ReportURL                string
	ReportNamespace          string
	ReportInsecureSkipVerify bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.RepoPath == "" {
		return nil, errors.New("RepoPath is a required configuration field and cannot be empty")
	}
	if len(cfg.Selectors) == 0 {
		return nil, errors.New("at least one --id selector is required")
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, ok := logLevels[cfg.LogLevel]; !ok {
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	if cfg.Processes < 1 {
		return nil, fmt.Errorf("invalid processes %d: must be at least 1", cfg.Processes)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck-port %d", cfg.HealthcheckPort)
	}

	return &cfg, nil
}
