package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"optable/adscript/pkg/analytics/retention"
	"optable/adscript/pkg/analytics/storage"
	"optable/adscript/pkg/config"
	"optable/adscript/pkg/loader"
	"optable/adscript/pkg/policy"
	"optable/adscript/pkg/policy/gitsource"
	"optable/adscript/pkg/server"
	"optable/adscript/pkg/telemetry/logging"
	"optable/adscript/pkg/telemetry/metrics"
	"optable/adscript/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the event logger server",
	Long: `Start the adscript event logger server with the specified configuration.

The server accepts analytics events on POST /events, serves server-side
script prefetch on POST /load, and exposes /healthz and /metrics. The
retention scheduler and, when enabled, the Git policy source run alongside.

Examples:
  # Start with default config
  adscript run

  # Start with custom config
  adscript run --config /etc/adscript/config.yaml

  # Override listen address
  adscript run --listen 0.0.0.0:8090

  # Validate config without starting the server
  adscript run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	if err := setupLogging(cfg); err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Metrics
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	// Tracing
	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer tracer.Shutdown(context.Background())

	// Analytics storage
	store, err := storage.New(&cfg.Analytics.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	// Policy gate
	gate, err := setupPolicy(ctx, cfg)
	if err != nil {
		return err
	}

	// Loader service with the HTTP environment as the default target
	var lm *metrics.LoaderMetrics
	if collector != nil {
		lm = collector.Loader()
	}
	env := loader.NewHTTPEnvironment(&cfg.Loader, nil, slog.Default())
	loaderSvc := loader.NewService(gate, env, slog.Default(), lm)

	// Retention
	pruner := retention.NewPruner(store, &cfg.Analytics.Retention)
	if err := pruner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start retention scheduler: %w", err)
	}
	defer pruner.Stop()

	srv := server.NewServer(cfg, store, collector, tracer)
	srv.SetLoaderService(loaderSvc)

	return srv.Start(ctx)
}

// loadConfig loads the configuration file named by the global flag, with
// environment variable overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the process default.
func setupLogging(cfg *config.Config) error {
	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	slog.SetDefault(logger.Slog())
	return nil
}

// setupPolicy builds the policy gate from the configured rules source: a
// Git-synced checkout when enabled, otherwise the local rules file, with
// optional hot reload. A missing local rules file degrades to allow-all with
// a warning; the static allow-list still applies.
func setupPolicy(ctx context.Context, cfg *config.Config) (policy.Gate, error) {
	if cfg.Policy.Git.Enabled {
		gate, err := policy.NewStaticRuleGate(&policy.RuleSet{Default: policy.EffectAllow}, nil)
		if err != nil {
			return nil, err
		}

		src, err := gitsource.New(&cfg.Policy.Git, cfg.Policy.RulesPath, gate.LoadFile, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("failed to create git rules source: %w", err)
		}
		if err := src.Sync(ctx); err != nil {
			return nil, fmt.Errorf("failed to sync git rules source: %w", err)
		}
		go func() {
			if err := src.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("git rules source stopped", "error", err)
			}
		}()
		return gate, nil
	}

	gate, err := policy.NewRuleGate(cfg.Policy.RulesPath, nil)
	if err != nil {
		slog.Warn("policy rules unavailable, applying allow-all gate",
			"path", cfg.Policy.RulesPath,
			"error", err,
		)
		return policy.AllowAll(), nil
	}

	if cfg.Policy.Watch {
		watcher, err := policy.NewWatcher(gate, cfg.Policy.RulesPath, cfg.Policy.WatchDebounce, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("failed to watch rules file: %w", err)
		}
		go func() {
			defer watcher.Close()
			if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Error("rules watcher stopped", "error", err)
			}
		}()
	}

	return gate, nil
}
