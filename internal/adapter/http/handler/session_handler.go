package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/bankcore/internal/adapter/http/dto"
	"github.com/iho/bankcore/internal/domain"
	"github.com/iho/bankcore/internal/infrastructure/metrics"
	"github.com/iho/bankcore/internal/usecase"
)

// Authenticator verifies login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, input usecase.AuthenticateInput) (*domain.User, error)
}

// SessionManager opens and closes sessions.
type SessionManager interface {
	CreateSession(identity domain.Identity, clientOrigin string) (*domain.Session, error)
	Invalidate(token string)
	Timeout() time.Duration
}

// SessionHandler handles login, logout and session introspection.
type SessionHandler struct {
	users    Authenticator
	sessions SessionManager
	metrics  *metrics.Metrics
}

// NewSessionHandler creates a new SessionHandler. m may be nil.
func NewSessionHandler(users Authenticator, sessions SessionManager, m *metrics.Metrics) *SessionHandler {
	return &SessionHandler{users: users, sessions: sessions, metrics: m}
}

// Login authenticates the caller and opens a session. Any previous session of
// the same user is replaced.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.ToUseCaseInput())
	if err != nil {
		h.recordAttempt("failure")
		writeDomainError(w, r, "login failed", err)
		return
	}

	session, err := h.sessions.CreateSession(user.Identity(), r.RemoteAddr)
	if err != nil {
		h.recordAttempt("failure")
		writeDomainError(w, r, "failed to create session", err)
		return
	}
	h.recordAttempt("success")

	writeJSON(w, http.StatusCreated, dto.SessionFromDomain(session, h.sessions.Timeout(), true))
}

// Current returns the session attached to the request.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, ok := domain.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no active session", "")
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session, h.sessions.Timeout(), false))
}

// Logout invalidates the session attached to the request.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := domain.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no active session", "")
		return
	}

	h.sessions.Invalidate(session.Token)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) recordAttempt(status string) {
	if h.metrics != nil {
		h.metrics.AuthAttempts.WithLabelValues(status).Inc()
	}
}
