package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"optable/adscript/pkg/analytics"
)

// MemoryStorage implements the Storage interface using an in-memory map.
// This implementation is intended for testing only and should not be used in production.
type MemoryStorage struct {
	events map[string]*analytics.Event
	mu     sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		events: make(map[string]*analytics.Event),
	}
}

// Store persists an event to memory.
func (s *MemoryStorage) Store(ctx context.Context, event *analytics.Event) error {
	if err := event.Validate(); err != nil {
		return analytics.NewStorageError("memory", "store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy to avoid mutation through the caller's pointer.
	eventCopy := *event
	s.events[event.ID] = &eventCopy

	return nil
}

// StoreBatch persists a batch of events. Validation failures reject the
// whole batch, matching the transactional SQLite backend.
func (s *MemoryStorage) StoreBatch(ctx context.Context, events []*analytics.Event) error {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return analytics.NewStorageError("memory", "store_batch", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		eventCopy := *e
		s.events[e.ID] = &eventCopy
	}
	return nil
}

// Query retrieves events matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, query *analytics.Query) ([]*analytics.Event, error) {
	s.mu.RLock()

	results := []*analytics.Event{}
	for _, e := range s.events {
		if matchesQuery(e, query) {
			eventCopy := *e
			results = append(results, &eventCopy)
		}
	}
	s.mu.RUnlock()

	sortEvents(results, query)

	start := query.Offset
	if start > len(results) {
		return []*analytics.Event{}, nil
	}
	results = results[start:]

	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}

	return results, nil
}

// Count returns the number of events matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *analytics.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.events {
		if matchesQuery(e, query) {
			n++
		}
	}
	return n, nil
}

// CountByType returns event counts grouped by event type.
func (s *MemoryStorage) CountByType(ctx context.Context, query *analytics.Query) ([]analytics.TypeCount, error) {
	s.mu.RLock()
	counts := make(map[string]int64)
	for _, e := range s.events {
		if matchesQuery(e, query) {
			counts[e.EventType]++
		}
	}
	s.mu.RUnlock()

	out := make([]analytics.TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, analytics.TypeCount{EventType: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

// Delete removes events matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *analytics.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, e := range s.events {
		if matchesQuery(e, query) {
			delete(s.events, id)
			n++
		}
	}
	return n, nil
}

// LatestServerTime returns the newest stored server timestamp.
func (s *MemoryStorage) LatestServerTime(ctx context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, e := range s.events {
		if e.ServerTime.After(latest) {
			latest = e.ServerTime
		}
	}
	return latest, nil
}

// Close releases resources (no-op for memory storage).
func (s *MemoryStorage) Close() error {
	return nil
}

// Len returns the number of stored events, for tests.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func matchesQuery(e *analytics.Event, q *analytics.Query) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && e.ServerTime.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && e.ServerTime.After(*q.EndTime) {
		return false
	}
	if q.EventType != "" && e.EventType != q.EventType {
		return false
	}
	if q.CallerID != "" && e.CallerID != q.CallerID {
		return false
	}
	if q.ScriptURL != "" && e.ScriptURL != q.ScriptURL {
		return false
	}
	return true
}

func sortEvents(events []*analytics.Event, q *analytics.Query) {
	asc := q.SortOrder == "asc"
	switch q.SortBy {
	case "event_type":
		sort.SliceStable(events, func(i, j int) bool {
			if asc {
				return events[i].EventType < events[j].EventType
			}
			return events[i].EventType > events[j].EventType
		})
	case "caller_id":
		sort.SliceStable(events, func(i, j int) bool {
			if asc {
				return events[i].CallerID < events[j].CallerID
			}
			return events[i].CallerID > events[j].CallerID
		})
	default:
		sort.SliceStable(events, func(i, j int) bool {
			if asc {
				return events[i].ServerTime.Before(events[j].ServerTime)
			}
			return events[i].ServerTime.After(events[j].ServerTime)
		})
	}
}
