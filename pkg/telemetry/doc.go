// Package telemetry groups the observability concerns of adscript.
//
// # Components
//
//   - logging: structured slog-based logging
//   - metrics: Prometheus metrics collection
//   - tracing: OpenTelemetry distributed tracing
//
// # Usage
//
//	logger, _ := logging.New(logging.Config{Level: "info", Format: "json"})
//	slog.SetDefault(logger.Slog())
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.Loader().RecordLoadStarted("rtd")
//
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing)
//	ctx, span := tracer.Start(ctx, "operation")
//	defer span.End()
package telemetry
