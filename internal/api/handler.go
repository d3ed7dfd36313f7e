// Package api serves the single method-dispatched endpoint backed by the KV
// store and the users table, plus a websocket stream of background writes.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"PaintingOnWeb/internal/auth"
	"PaintingOnWeb/internal/store"
)

// DefaultMaxBodyBytes caps POST bodies; a background is a whole image.
const DefaultMaxBodyBytes = 16 << 20

const missingBindings = "Missing bindings (DB or KV)"

// Bindings are the storage collaborators. A nil field makes every request
// fail with 500.
type Bindings struct {
	DB store.Users
	KV store.KV
}

type Handler struct {
	bindings Bindings
	auth     *auth.Service
	hub      *Hub
	maxBody  int64
	log      *slog.Logger
}

type Option func(*Handler)

// WithHub publishes every background write to the hub's subscribers.
func WithHub(h *Hub) Option { return func(a *Handler) { a.hub = h } }

func WithMaxBodyBytes(n int64) Option { return func(a *Handler) { a.maxBody = n } }

func WithLogger(l *slog.Logger) Option { return func(a *Handler) { a.log = l } }

func NewHandler(b Bindings, opts ...Option) *Handler {
	h := &Handler{
		bindings: b,
		maxBody:  DefaultMaxBodyBytes,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With("component", "api")
	if b.DB != nil {
		h.auth = auth.NewService(b.DB, h.log)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.bindings.DB == nil || h.bindings.KV == nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: missingBindings})
		return
	}

	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("action") == ActionGetPrefs {
			h.getPrefs(w, r)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "online", D1: "ready", KV: "ready"})
	case http.MethodPost:
		h.post(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) getPrefs(w http.ResponseWriter, r *http.Request) {
	resp := PrefsResponse{}
	entry, err := h.bindings.KV.Get(r.Context(), store.BackgroundKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		h.internalError(w, r, "get background", err)
		return
	default:
		resp.Background = &entry.Value
		resp.Version = entry.Version
		resp.UpdatedAt = entry.UpdatedAt.UnixMilli()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req Request
	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, AuthResponse{Message: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, AuthResponse{Message: "Invalid JSON body"})
		return
	}

	switch req.Action {
	case ActionSetBackground:
		h.setBackground(w, r, req)
	case ActionAuth:
		h.authenticate(w, r, req)
	default:
		methodNotAllowed(w)
	}
}

// setBackground overwrites the global value unconditionally; the last write
// to reach the store wins and its version tells callers who that was.
func (h *Handler) setBackground(w http.ResponseWriter, r *http.Request, req Request) {
	if req.Data == nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Message: "Missing data"})
		return
	}
	entry, err := h.bindings.KV.Put(r.Context(), store.BackgroundKey, *req.Data)
	if err != nil {
		h.internalError(w, r, "set background", err)
		return
	}
	h.log.Info("background replaced", "version", entry.Version, "bytes", len(entry.Value),
		"request", RequestID(r.Context()))
	if h.hub != nil {
		h.hub.Broadcast(Event{Type: EventBackground, Version: entry.Version, Data: entry.Value})
	}
	writeJSON(w, http.StatusOK, SetBackgroundResponse{Success: true, Version: entry.Version})
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, req Request) {
	mode, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, AuthResponse{Success: true, Mode: string(mode)})
	case errors.Is(err, auth.ErrInvalidPassword):
		writeJSON(w, http.StatusUnauthorized, AuthResponse{Message: "Invalid password"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusBadRequest, AuthResponse{Message: "Username and password are required"})
	default:
		h.internalError(w, r, "authenticate", err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error(op+" failed", "err", err, "request", RequestID(r.Context()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal error"})
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("write response", "component", "api", "err", err)
	}
}
