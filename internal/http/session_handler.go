package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/session"
)

type SessionHandler struct {
	registry *session.Registry
	log      *slog.Logger
}

func NewSessionHandler(registry *session.Registry, log *slog.Logger) *SessionHandler {
	return &SessionHandler{registry: registry, log: log}
}

// SignIn switches the session to the identity in X-User-ID.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	userID := getUserID(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := s.SignIn(r.Context(), userID); err != nil {
		h.log.ErrorContext(r.Context(), "sign-in failed", "user_id", userID, "error", err)
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(s))
}

func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	if err := s.SignOut(r.Context()); err != nil {
		h.log.ErrorContext(r.Context(), "sign-out failed", "error", err)
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(s))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionResponse(getSession(r.Context())))
}

// End flushes and closes the session. A later request with the same id
// reopens it from its saved slots.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	if err := h.registry.Close(r.Context(), sessionID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		h.log.ErrorContext(r.Context(), "session close failed", "session_id", sessionID, "error", err)
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
