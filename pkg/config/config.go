package config

import "time"

// Config is the root configuration structure for adscript.
// It contains all configuration sections for the event logger server, the
// external-script loader, the policy gate, analytics storage, and telemetry.
type Config struct {
	// Server contains HTTP event logger server configuration including
	// listen address, timeouts, and connection limits.
	Server ServerConfig `yaml:"server"`

	// Loader contains configuration for the external-script loader.
	Loader LoaderConfig `yaml:"loader"`

	// Policy contains configuration for the policy gate including the rules
	// file location, watch mode, and the optional Git rules source.
	Policy PolicyConfig `yaml:"policy"`

	// Analytics contains configuration for analytics event storage,
	// ingestion, and retention.
	Analytics AnalyticsConfig `yaml:"analytics"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP event logger server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8090", "0.0.0.0:8090").
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. A zero or negative value means no timeout.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If IdleTimeout is zero, ReadTimeout is used.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxEventBytes is the maximum accepted size of a single event payload.
	// Default: 262144 (256KB)
	MaxEventBytes int64 `yaml:"max_event_bytes"`
}

// LoaderConfig contains configuration for the external-script loader.
//
// Note that loads have no timeout or cancellation once initiated; the loader
// runs each fetch to whatever terminal state the environment delivers.
type LoaderConfig struct {
	// UserAgent is the User-Agent header sent when fetching scripts.
	// Default: "adscript-loader"
	UserAgent string `yaml:"user_agent"`

	// MaxScriptBytes caps the number of bytes retained from a fetched
	// script. Bytes beyond the cap are discarded. 0 means unlimited.
	// Default: 4194304 (4MB)
	MaxScriptBytes int64 `yaml:"max_script_bytes"`
}

// PolicyConfig contains configuration for the policy gate.
type PolicyConfig struct {
	// RulesPath is the path to the YAML rules file.
	// Default: "policies/rules.yaml"
	RulesPath string `yaml:"rules_path"`

	// Watch enables hot reloading of the rules file on change.
	// Default: true
	Watch bool `yaml:"watch"`

	// WatchDebounce is the delay applied before reloading after a file
	// change event, to coalesce editor write bursts.
	// Default: 500ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Git contains configuration for the optional Git rules source.
	Git GitPolicyConfig `yaml:"git"`
}

// GitPolicyConfig contains configuration for syncing policy rules from a
// Git repository.
type GitPolicyConfig struct {
	// Enabled turns on the Git rules source. When enabled, RulesPath is
	// resolved relative to the checked-out repository.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Repository is the clone URL of the rules repository.
	Repository string `yaml:"repository"`

	// Branch is the branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// LocalPath is the directory for the local checkout.
	// Default: os.TempDir()/adscript-policies
	LocalPath string `yaml:"local_path"`

	// PollInterval is how often to fetch and check for new commits.
	// Default: 60s
	PollInterval time.Duration `yaml:"poll_interval"`

	// CleanOnStart removes any existing checkout before cloning.
	// Default: false
	CleanOnStart bool `yaml:"clean_on_start"`
}

// AnalyticsConfig contains configuration for analytics event handling.
type AnalyticsConfig struct {
	// Storage contains storage backend configuration.
	Storage StorageConfig `yaml:"storage"`

	// Ingest contains JSONL ingestion configuration.
	Ingest IngestConfig `yaml:"ingest"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// StorageConfig contains configuration for the analytics storage backend.
type StorageConfig struct {
	// Backend selects the storage backend ("sqlite" or "memory").
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path.
	// Default: "data/analytics.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// IngestConfig contains configuration for JSONL file ingestion.
type IngestConfig struct {
	// BatchSize is the number of events inserted per batch.
	// Default: 1000
	BatchSize int `yaml:"batch_size"`

	// CheckpointPath is the path of the ingest checkpoint database used to
	// resume partially ingested files. Empty disables checkpointing.
	// Default: "data/ingest-checkpoint.db"
	CheckpointPath string `yaml:"checkpoint_path"`

	// SkipOlder skips events whose server timestamp is at or before the
	// latest timestamp already stored, making re-ingestion idempotent.
	// Default: true
	SkipOlder bool `yaml:"skip_older"`
}

// RetentionConfig contains configuration for analytics event retention.
type RetentionConfig struct {
	// RetentionDays is the number of days to retain events.
	// 0 means keep events forever (no pruning).
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete enables archiving events to JSON before deletion.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory to store archived events.
	// Default: "data/archives"
	ArchivePath string `yaml:"archive_path"`

	// MaxRecords is the maximum number of events to keep. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text", "console").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the /metrics endpoint.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name namespace.
	// Default: "adscript"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric name subsystem.
	Subsystem string `yaml:"subsystem"`

	// Path is the HTTP path serving the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled turns on trace export. When disabled a noop tracer is used.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/gRPC collector endpoint (host:port).
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS on the exporter connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// ServiceName is the reported service name.
	// Default: "adscript"
	ServiceName string `yaml:"service_name"`

	// SampleRatio is the trace sampling ratio in [0, 1].
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`
}
