package loader

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"optable/adscript/pkg/config"
)

// HTTPEnvironment is an Environment whose resources are scripts fetched over
// HTTP. Insertion makes the handle visible immediately; the fetch runs on a
// background goroutine and the settle signal fires when the request finishes,
// on success or failure alike.
type HTTPEnvironment struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *slog.Logger

	mu       sync.Mutex
	inserted map[*HTTPHandle]struct{}
}

// NewHTTPEnvironment creates an HTTP-backed environment. A nil client falls
// back to http.DefaultClient.
func NewHTTPEnvironment(cfg *config.LoaderConfig, client *http.Client, logger *slog.Logger) *HTTPEnvironment {
	if cfg == nil {
		cfg = &config.LoaderConfig{}
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "adscript-loader"
	}

	return &HTTPEnvironment{
		client:    client,
		userAgent: userAgent,
		maxBytes:  cfg.MaxScriptBytes,
		logger:    logger.With("component", "loader.httpenv"),
		inserted:  make(map[*HTTPHandle]struct{}),
	}
}

// HTTPHandle is the resource handle produced by HTTPEnvironment.
type HTTPHandle struct {
	url   string
	attrs map[string]string

	mu        sync.Mutex
	settled   bool
	observers []func()
	data      []byte
	status    int
}

// URL implements Handle.
func (h *HTTPHandle) URL() string {
	return h.url
}

// Attr returns the value of an attribute applied at creation time.
func (h *HTTPHandle) Attr(key string) string {
	return h.attrs[key]
}

// Settled reports whether the fetch has finished.
func (h *HTTPHandle) Settled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settled
}

// Data returns the fetched script bytes. It is nil until the handle settles,
// and stays nil when the fetch failed.
func (h *HTTPHandle) Data() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data
}

// StatusCode returns the HTTP status of the fetch, or 0 before settle and on
// transport errors.
func (h *HTTPHandle) StatusCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// settle fires the observers exactly once.
func (h *HTTPHandle) settle(data []byte, status int) {
	h.mu.Lock()
	if h.settled {
		h.mu.Unlock()
		return
	}
	h.settled = true
	h.data = data
	h.status = status
	observers := h.observers
	h.observers = nil
	h.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

// CreateResource implements Environment. It fails synchronously for URLs that
// are not absolute http(s) URLs.
func (e *HTTPEnvironment) CreateResource(rawURL string, attrs map[string]string) (Handle, error) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, fmt.Errorf("malformed url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}

	return &HTTPHandle{url: rawURL, attrs: copied}, nil
}

// InsertResource implements Environment.
func (e *HTTPEnvironment) InsertResource(h Handle) {
	hh, ok := h.(*HTTPHandle)
	if !ok {
		return
	}
	e.mu.Lock()
	e.inserted[hh] = struct{}{}
	e.mu.Unlock()
}

// ObserveSettle implements Environment. An observer attached after settle is
// invoked immediately.
func (e *HTTPEnvironment) ObserveSettle(h Handle, fn func()) {
	hh, ok := h.(*HTTPHandle)
	if !ok {
		return
	}

	hh.mu.Lock()
	if hh.settled {
		hh.mu.Unlock()
		fn()
		return
	}
	hh.observers = append(hh.observers, fn)
	hh.mu.Unlock()
}

// StartFetch implements Environment. The fetch has no timeout or
// cancellation; it runs to whatever terminal state the transport delivers.
func (e *HTTPEnvironment) StartFetch(h Handle) {
	hh, ok := h.(*HTTPHandle)
	if !ok {
		return
	}

	go func() {
		req, err := http.NewRequest(http.MethodGet, hh.url, nil)
		if err != nil {
			e.logger.Error("failed to build fetch request", "url", hh.url, "error", err)
			hh.settle(nil, 0)
			return
		}
		req.Header.Set("User-Agent", e.userAgent)

		resp, err := e.client.Do(req)
		if err != nil {
			e.logger.Warn("script fetch failed", "url", hh.url, "error", err)
			hh.settle(nil, 0)
			return
		}
		defer resp.Body.Close()

		var body io.Reader = resp.Body
		if e.maxBytes > 0 {
			body = io.LimitReader(resp.Body, e.maxBytes)
		}
		data, err := io.ReadAll(body)
		if err != nil {
			e.logger.Warn("script body read failed", "url", hh.url, "error", err)
			hh.settle(nil, resp.StatusCode)
			return
		}

		e.logger.Debug("script fetched",
			"url", hh.url,
			"status", resp.StatusCode,
			"bytes", len(data),
		)
		hh.settle(data, resp.StatusCode)
	}()
}

// InsertedCount returns the number of resources inserted into the
// environment, for introspection.
func (e *HTTPEnvironment) InsertedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inserted)
}
