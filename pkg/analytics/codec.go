package analytics

import (
	"encoding/json"
	"fmt"
	"io"
)

// Validate checks that an event carries the fields storage requires.
func (e *Event) Validate() error {
	if e.EventType == "" {
		return fmt.Errorf("%w: missing event type", ErrInvalidEvent)
	}
	if e.ServerTime.IsZero() {
		return fmt.Errorf("%w: missing server timestamp", ErrInvalidEvent)
	}
	return nil
}

// ParseLine decodes one JSONL line into an event. Empty input is rejected so
// callers can skip blank lines before calling.
func ParseLine(line []byte) (*Event, error) {
	if len(line) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrInvalidEvent)
	}
	var e Event
	if err := json.Unmarshal(line, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return &e, nil
}

// WriteJSONL writes events to w, one JSON document per line. Used by the
// retention archiver and the export path of the CLI.
func WriteJSONL(w io.Writer, events []*Event) error {
	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("analytics: encode event %s: %w", e.ID, err)
		}
	}
	return nil
}
