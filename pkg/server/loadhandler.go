package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"optable/adscript/pkg/loader"
)

// LoadHandler triggers server-side loads of external scripts through the
// loader service. It is used to prefetch and validate vendor scripts with
// the same policy gate and allow-list the in-page loader enforces.
type LoadHandler struct {
	service *loader.Service
	logger  *slog.Logger
}

// NewLoadHandler creates the load handler.
func NewLoadHandler(service *loader.Service, logger *slog.Logger) *LoadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadHandler{
		service: service,
		logger:  logger.With("component", "server.load"),
	}
}

type loadRequest struct {
	URL        string            `json:"url"`
	CallerKind string            `json:"callerKind"`
	CallerID   string            `json:"callerID"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type loadResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// ServeHTTP implements http.Handler.
func (h *LoadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request"})
		return
	}

	handle := h.service.RequestLoad(req.URL, req.CallerKind, req.CallerID, nil, nil, req.Attributes)
	if handle == nil {
		// Validation, policy, or allow-list rejection; details are in the
		// service log only.
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "load request rejected"})
		return
	}

	entry, _ := h.service.Registry().Lookup(h.service.DefaultEnvironment(), req.URL)
	state := loader.StatePending
	if entry != nil {
		state = h.service.Registry().StateOf(entry)
	}

	writeJSON(w, http.StatusAccepted, loadResponse{
		URL:   handle.URL(),
		State: state.String(),
	})
}
