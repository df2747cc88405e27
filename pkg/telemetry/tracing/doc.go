// Package tracing provides OpenTelemetry distributed tracing for adscript.
//
// Traces are exported over OTLP/gRPC to a collector. When tracing is disabled
// a noop tracer is returned and span creation is effectively free, so callers
// can create spans unconditionally.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "ingest.batch")
//	defer span.End()
package tracing
