package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/core/service"
	"github.com/yndnr/webstore-go/internal/telemetry/logger"
)

// Handler serves the inspection routes of one storage context.
type Handler struct {
	m      *service.Manager
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a Handler for m.
func New(m *service.Manager, log *slog.Logger) *Handler {
	h := &Handler{
		m:      m,
		logger: log,
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /backends", h.handleBackends)
	h.mux.HandleFunc("GET /keys", h.handleKeys)
	h.mux.HandleFunc("GET /keys/{key}", h.handleEntry)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":     "healthy",
		"context_id": h.m.ContextID(),
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleBackends(w http.ResponseWriter, r *http.Request) {
	stats := make(map[domain.Backend]int)
	all := h.m.Origin().Stats()
	for i, s := range all {
		stats[s.Backend] = i
	}

	out := make([]BackendStatus, 0, domain.BackendCount)
	for _, b := range domain.Backends() {
		caps, err := h.m.Capabilities(b)
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
		st := BackendStatus{
			Backend:       b.String(),
			Available:     h.m.IsAvailable(b),
			Async:         caps.Async,
			Notifies:      caps.Notifies,
			Persistent:    caps.Persistent,
			Shared:        caps.Shared,
			MaxBytes:      caps.MaxBytes,
			PerEntryLimit: caps.PerEntryLimit,
		}
		if i, ok := stats[b]; ok {
			st.Entries = all[i].Entries
			st.UsageBytes = all[i].UsageBytes
			st.QuotaBytes = all[i].QuotaBytes
		}
		out = append(out, st)
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) handleKeys(w http.ResponseWriter, r *http.Request) {
	b, ok := h.backend(w, r)
	if !ok {
		return
	}
	keys, err := h.m.Keys(r.Context(), service.InStorage(b))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	h.writeJSON(w, r, http.StatusOK, KeysResponse{Backend: b.String(), Keys: keys})
}

func (h *Handler) handleEntry(w http.ResponseWriter, r *http.Request) {
	b, ok := h.backend(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	ctx := r.Context()

	var value json.RawMessage
	found, err := h.m.Get(ctx, key, &value, service.InStorage(b))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !found {
		h.writeError(w, r, http.StatusNotFound, "WS-KEY-4040", "key not found")
		return
	}

	resp := EntryResponse{Key: key, Backend: b.String(), Value: value}
	remaining, hasExpiry, err := h.m.TTL(ctx, key, service.InStorage(b))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if hasExpiry {
		ms := remaining.Milliseconds()
		resp.TTLMillis = &ms
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// backend resolves the storage query parameter, writing a 400 on failure.
func (h *Handler) backend(w http.ResponseWriter, r *http.Request) (domain.Backend, bool) {
	b, err := domain.ParseBackend(r.URL.Query().Get("storage"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return b, false
	}
	if b == domain.BackendDefault {
		b = h.m.DefaultStorage()
	}
	return b, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message))
}

// handleServiceError converts storage errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if code := domain.GetErrorCode(err); code != "" {
		h.writeError(w, r, errorStatus(err, code), code, err.Error())
		return
	}
	h.logger.Error("internal error", "error", err, "path", r.URL.Path)
	h.writeError(w, r, http.StatusInternalServerError, "WS-SYS-5000", "internal server error")
}

func errorStatus(err error, code string) int {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnavailableBackend):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrDecryption):
		return http.StatusUnprocessableEntity
	case strings.HasPrefix(code, "WS-CODEC-"):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
