package domain

import (
	"context"
	"time"
)

// Identity is the principal a session is granted to.
type Identity struct {
	UserID      string
	DisplayName string
	Role        Role
}

// Session is a live login. Sessions are process-local and never persisted.
type Session struct {
	Token          string
	Identity       Identity
	ClientOrigin   string
	LoginAt        time.Time
	LastActivityAt time.Time
	Active         bool
}

// ExpiredAt reports whether the session has been idle for longer than timeout
// at now.
func (s *Session) ExpiredAt(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivityAt) > timeout
}

type sessionContextKey struct{}

// ContextWithSession returns a copy of ctx carrying s.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext extracts the session placed by ContextWithSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	return s, ok && s != nil
}
