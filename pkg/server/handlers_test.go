package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"optable/adscript/pkg/analytics"
	"optable/adscript/pkg/analytics/storage"
	"optable/adscript/pkg/config"
)

func newTestHandler(store analytics.Storage) *EventsHandler {
	h := NewEventsHandler(store, 1<<20, nil, nil, nil)
	h.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return h
}

func postEvents(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.9:54321"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestEventsHandler_SingleEvent(t *testing.T) {
	store := storage.NewMemoryStorage()
	h := newTestHandler(store)

	w := postEvents(t, h, `{"eventType":"script_load","callerID":"optable","scriptURL":"https://cdn.example.com/a.js"}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", w.Code, w.Body.String())
	}

	var resp eventsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Stored != 1 {
		t.Errorf("stored = %d, want 1", resp.Stored)
	}

	events, _ := store.Query(context.Background(), &analytics.Query{})
	if len(events) != 1 {
		t.Fatalf("store holds %d events, want 1", len(events))
	}
	e := events[0]
	if e.ID == "" {
		t.Error("event stored without an assigned ID")
	}
	if e.ServerTime.IsZero() {
		t.Error("server time not stamped")
	}
	if e.ClientIP != "203.0.113.9" {
		t.Errorf("client IP = %q, want 203.0.113.9", e.ClientIP)
	}
}

func TestEventsHandler_JSONLBatch(t *testing.T) {
	store := storage.NewMemoryStorage()
	h := newTestHandler(store)

	body := `{"eventType":"script_load","callerID":"optable"}
{"eventType":"script_settle","callerID":"optable"}
{"eventType":"script_load","callerID":"browsi"}`

	w := postEvents(t, h, body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", w.Code, w.Body.String())
	}
	if store.Len() != 3 {
		t.Errorf("store holds %d events, want 3", store.Len())
	}
}

func TestEventsHandler_XForwardedFor(t *testing.T) {
	store := storage.NewMemoryStorage()
	h := newTestHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/events",
		strings.NewReader(`{"eventType":"script_load"}`))
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	events, _ := store.Query(context.Background(), &analytics.Query{})
	if len(events) != 1 || events[0].ClientIP != "198.51.100.7" {
		t.Errorf("client IP = %q, want first X-Forwarded-For entry", events[0].ClientIP)
	}
}

func TestEventsHandler_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"empty body", http.MethodPost, "", http.StatusBadRequest},
		{"malformed json", http.MethodPost, "not json", http.StatusBadRequest},
		{"missing event type", http.MethodPost, `{"callerID":"optable"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			h := newTestHandler(store)

			req := httptest.NewRequest(tt.method, "/events", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if store.Len() != 0 {
				t.Error("rejected request stored events")
			}
		})
	}
}

// A malformed line rejects the whole batch; nothing is partially stored.
func TestEventsHandler_BatchIsAtomic(t *testing.T) {
	store := storage.NewMemoryStorage()
	h := newTestHandler(store)

	body := `{"eventType":"script_load"}
garbage line`

	w := postEvents(t, h, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if store.Len() != 0 {
		t.Error("partial batch was stored")
	}
}

func TestServer_Routes(t *testing.T) {
	cfg := config.NewDefaultConfig()
	store := storage.NewMemoryStorage()
	srv := NewServer(cfg, store, nil, nil)

	handler := srv.Handler()

	t.Run("healthz", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("healthz status = %d, want 200", w.Code)
		}
	})

	t.Run("events", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/events",
			strings.NewReader(`{"eventType":"script_load"}`))
		req.RemoteAddr = "203.0.113.9:9999"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusAccepted {
			t.Errorf("events status = %d, want 202; body %s", w.Code, w.Body.String())
		}
	})

	t.Run("request id echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Header().Get("X-Request-ID") == "" {
			t.Error("response missing X-Request-ID header")
		}
	})
}
