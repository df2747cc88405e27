package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"optable/adscript/pkg/analytics"
	"optable/adscript/pkg/telemetry/metrics"
	"optable/adscript/pkg/telemetry/tracing"
)

// EventsHandler accepts analytics events over HTTP. A request body is either
// a single JSON event or a JSONL batch; every event is stamped with the
// server time and the client's IP before storage.
type EventsHandler struct {
	storage  analytics.Storage
	maxBytes int64
	logger   *slog.Logger
	metrics  *metrics.IngestMetrics
	tracer   *tracing.Tracer
	now      func() time.Time
}

// NewEventsHandler creates the events ingestion handler. The metrics group
// and tracer may be nil.
func NewEventsHandler(storage analytics.Storage, maxBytes int64, logger *slog.Logger, im *metrics.IngestMetrics, tr *tracing.Tracer) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		storage:  storage,
		maxBytes: maxBytes,
		logger:   logger.With("component", "server.events"),
		metrics:  im,
		tracer:   tr,
		now:      time.Now,
	}
}

type eventsResponse struct {
	Stored int `json:"stored"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP implements http.Handler.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	ctx := r.Context()

	body := r.Body
	if h.maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
		return
	}

	serverTime := h.now().UTC()
	clientIP := clientAddr(r)

	var events []*analytics.Event
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		event, err := analytics.ParseLine(line)
		if err != nil {
			h.logger.Warn("rejecting malformed event", "error", err, "remote_addr", r.RemoteAddr)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed event"})
			return
		}

		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		event.ServerTime = serverTime
		event.ClientIP = clientIP

		if err := event.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		events = append(events, event)
	}

	if len(events) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty request body"})
		return
	}

	if h.tracer != nil {
		spanCtx, span := h.tracer.Start(ctx, "events.store",
			attribute.Int("event_count", len(events)),
		)
		err = h.storage.StoreBatch(spanCtx, events)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	} else {
		err = h.storage.StoreBatch(ctx, events)
	}

	if err != nil {
		h.logger.Error("failed to store events", "error", err, "count", len(events))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage failure"})
		return
	}

	if h.metrics != nil {
		for _, e := range events {
			h.metrics.RecordReceived(e.EventType)
		}
	}

	writeJSON(w, http.StatusAccepted, eventsResponse{Stored: len(events)})
}

// HealthHandler responds to liveness probes.
type HealthHandler struct{}

// ServeHTTP implements http.Handler.
func (HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientAddr extracts the submitting client's IP, preferring the first
// X-Forwarded-For entry when present.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
