// Package logging provides structured logging for adscript.
//
// The Logger wraps log/slog with configurable levels and output formats, and
// supports context-aware logging where common fields (request ID, caller ID,
// resource URL) are carried in a context.Context and automatically attached
// to every log entry.
//
// # Basic Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	logger.Info("script load requested", "url", url, "caller_id", id)
//
// # Context Fields
//
//	ctx = logging.WithRequestID(ctx, requestID)
//	ctx = logging.WithCallerID(ctx, callerID)
//	logger.InfoContext(ctx, "load denied")
package logging
