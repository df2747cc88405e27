package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first problem found.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validatePolicy(&cfg.Policy); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if err := validateAnalytics(&cfg.Analytics); err != nil {
		return fmt.Errorf("analytics: %w", err)
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.ListenAddress == "" {
		return fmt.Errorf("listen_address cannot be empty")
	}
	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen_address %q: %w", cfg.ListenAddress, err)
	}
	if cfg.MaxHeaderBytes < 0 {
		return fmt.Errorf("max_header_bytes cannot be negative")
	}
	if cfg.MaxEventBytes < 0 {
		return fmt.Errorf("max_event_bytes cannot be negative")
	}
	return nil
}

func validatePolicy(cfg *PolicyConfig) error {
	if cfg.RulesPath == "" {
		return fmt.Errorf("rules_path cannot be empty")
	}
	if cfg.Git.Enabled {
		if cfg.Git.Repository == "" {
			return fmt.Errorf("git.repository cannot be empty when git source is enabled")
		}
		if cfg.Git.Branch == "" {
			return fmt.Errorf("git.branch cannot be empty when git source is enabled")
		}
		if cfg.Git.PollInterval < 0 {
			return fmt.Errorf("git.poll_interval cannot be negative")
		}
	}
	return nil
}

func validateAnalytics(cfg *AnalyticsConfig) error {
	switch cfg.Storage.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q (must be \"sqlite\" or \"memory\")", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.Path == "" {
		return fmt.Errorf("storage path cannot be empty for sqlite backend")
	}
	if cfg.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest batch_size must be positive")
	}
	if cfg.Retention.RetentionDays < 0 {
		return fmt.Errorf("retention_days cannot be negative")
	}
	if cfg.Retention.MaxRecords < 0 {
		return fmt.Errorf("max_records cannot be negative")
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Logging.Format)
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with \"/\"")
	}
	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing endpoint cannot be empty when tracing is enabled")
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			return fmt.Errorf("tracing sample_ratio must be in [0, 1]")
		}
	}
	return nil
}
