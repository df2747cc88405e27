package analytics

import (
	"context"
	"time"
)

// Event is a single analytics event emitted around external-script loading:
// a load request, a settle, a rejection, or a vendor beacon relayed through
// the event logger.
type Event struct {
	// ID is a UUID v4, assigned on receipt when the submitter did not
	// provide one.
	ID string `json:"id"`

	// EventType names the event ("script_load", "script_settle",
	// "script_rejected", vendor-defined types).
	EventType string `json:"eventType"`

	// ServerTime is stamped by the receiving server.
	ServerTime time.Time `json:"serverTimestamp"`

	// ClientTime is the submitter's own timestamp, when provided.
	ClientTime time.Time `json:"timestamp,omitempty"`

	// ClientIP is the submitting client's address, stamped by the server.
	ClientIP string `json:"clientIP,omitempty"`

	// CallerID identifies the plugin module the event concerns.
	CallerID string `json:"callerID,omitempty"`

	// ScriptURL is the external script the event concerns, if any.
	ScriptURL string `json:"scriptURL,omitempty"`

	// Data carries vendor-defined payload fields.
	Data map[string]any `json:"data,omitempty"`
}

// Query defines filter parameters for querying stored events.
type Query struct {
	// Time range on server time.
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive end

	// Filters
	EventType string `json:"event_type,omitempty"`
	CallerID  string `json:"caller_id,omitempty"`
	ScriptURL string `json:"script_url,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // "server_time", "event_type", "caller_id"
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc"
}

// TypeCount is one row of an events-by-type aggregation.
type TypeCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

// Storage defines the interface for analytics event storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a single event.
	Store(ctx context.Context, event *Event) error

	// StoreBatch persists a batch of events in one transaction.
	StoreBatch(ctx context.Context, events []*Event) error

	// Query retrieves events matching the query filters. It returns an
	// empty slice when nothing matches.
	Query(ctx context.Context, query *Query) ([]*Event, error)

	// Count returns the number of events matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// CountByType returns event counts grouped by event type, within the
	// query's filters.
	CountByType(ctx context.Context, query *Query) ([]TypeCount, error)

	// Delete removes events matching the query filters and returns the
	// number removed. Used for retention enforcement.
	Delete(ctx context.Context, query *Query) (int64, error)

	// LatestServerTime returns the newest stored server timestamp, or the
	// zero time when the store is empty.
	LatestServerTime(ctx context.Context) (time.Time, error)

	// Close releases resources held by the backend.
	Close() error
}
