package config

import (
	"os"
	"path/filepath"
	"time"
)

// ApplyDefaults fills in default values for any unset configuration fields.
// It does not overwrite fields that have been explicitly set.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = "127.0.0.1:8090"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20
	}
	if cfg.Server.MaxEventBytes == 0 {
		cfg.Server.MaxEventBytes = 256 << 10
	}

	// Loader defaults
	if cfg.Loader.UserAgent == "" {
		cfg.Loader.UserAgent = "adscript-loader"
	}
	if cfg.Loader.MaxScriptBytes == 0 {
		cfg.Loader.MaxScriptBytes = 4 << 20
	}

	// Policy defaults
	if cfg.Policy.RulesPath == "" {
		cfg.Policy.RulesPath = "policies/rules.yaml"
	}
	if cfg.Policy.WatchDebounce == 0 {
		cfg.Policy.WatchDebounce = 500 * time.Millisecond
	}
	if cfg.Policy.Git.Branch == "" {
		cfg.Policy.Git.Branch = "main"
	}
	if cfg.Policy.Git.LocalPath == "" {
		cfg.Policy.Git.LocalPath = filepath.Join(os.TempDir(), "adscript-policies")
	}
	if cfg.Policy.Git.PollInterval == 0 {
		cfg.Policy.Git.PollInterval = 60 * time.Second
	}

	// Analytics defaults
	if cfg.Analytics.Storage.Backend == "" {
		cfg.Analytics.Storage.Backend = "sqlite"
	}
	if cfg.Analytics.Storage.Path == "" {
		cfg.Analytics.Storage.Path = "data/analytics.db"
	}
	if cfg.Analytics.Storage.MaxOpenConns == 0 {
		cfg.Analytics.Storage.MaxOpenConns = 10
	}
	if cfg.Analytics.Storage.MaxIdleConns == 0 {
		cfg.Analytics.Storage.MaxIdleConns = 5
	}
	if cfg.Analytics.Storage.BusyTimeout == 0 {
		cfg.Analytics.Storage.BusyTimeout = 5 * time.Second
	}
	if cfg.Analytics.Ingest.BatchSize == 0 {
		cfg.Analytics.Ingest.BatchSize = 1000
	}
	if cfg.Analytics.Ingest.CheckpointPath == "" {
		cfg.Analytics.Ingest.CheckpointPath = "data/ingest-checkpoint.db"
	}
	if cfg.Analytics.Retention.RetentionDays == 0 {
		cfg.Analytics.Retention.RetentionDays = 90
	}
	if cfg.Analytics.Retention.PruneSchedule == "" {
		cfg.Analytics.Retention.PruneSchedule = "0 3 * * *"
	}
	if cfg.Analytics.Retention.ArchivePath == "" {
		cfg.Analytics.Retention.ArchivePath = "data/archives"
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "adscript"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = "adscript"
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = 1.0
	}
}

// NewDefaultConfig returns a Config with all default values applied.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Policy: PolicyConfig{
			Watch: true,
		},
		Analytics: AnalyticsConfig{
			Storage: StorageConfig{WALMode: true},
			Ingest:  IngestConfig{SkipOlder: true},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: true},
			Tracing: TracingConfig{Insecure: true},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
