package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// CallerIDKey is the context key for loader caller identifiers.
	CallerIDKey contextKey = "caller_id"

	// ResourceURLKey is the context key for resource URLs.
	ResourceURLKey contextKey = "resource_url"

	// EventTypeKey is the context key for analytics event types.
	EventTypeKey contextKey = "event_type"

	// ClientIPKey is the context key for client IP addresses.
	ClientIPKey contextKey = "client_ip"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithCallerID adds a loader caller identifier to the context.
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, CallerIDKey, callerID)
}

// GetCallerID retrieves the loader caller identifier from the context.
func GetCallerID(ctx context.Context) string {
	if callerID, ok := ctx.Value(CallerIDKey).(string); ok {
		return callerID
	}
	return ""
}

// WithResourceURL adds a resource URL to the context.
func WithResourceURL(ctx context.Context, url string) context.Context {
	return context.WithValue(ctx, ResourceURLKey, url)
}

// GetResourceURL retrieves the resource URL from the context.
func GetResourceURL(ctx context.Context) string {
	if url, ok := ctx.Value(ResourceURLKey).(string); ok {
		return url
	}
	return ""
}

// WithEventType adds an analytics event type to the context.
func WithEventType(ctx context.Context, eventType string) context.Context {
	return context.WithValue(ctx, EventTypeKey, eventType)
}

// GetEventType retrieves the analytics event type from the context.
func GetEventType(ctx context.Context) string {
	if eventType, ok := ctx.Value(EventTypeKey).(string); ok {
		return eventType
	}
	return ""
}

// WithClientIP adds a client IP address to the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// GetClientIP retrieves the client IP address from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ClientIPKey).(string); ok {
		return ip
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if callerID := GetCallerID(ctx); callerID != "" {
		fields = append(fields, "caller_id", callerID)
	}
	if url := GetResourceURL(ctx); url != "" {
		fields = append(fields, "resource_url", url)
	}
	if eventType := GetEventType(ctx); eventType != "" {
		fields = append(fields, "event_type", eventType)
	}
	if ip := GetClientIP(ctx); ip != "" {
		fields = append(fields, "client_ip", ip)
	}

	return fields
}
