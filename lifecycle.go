package goGuard

import "time"

// SessionState is a position in the session lifecycle.
type SessionState int

const (
	// SessionAnonymous is the initial state and the state after logout.
	SessionAnonymous SessionState = iota
	// SessionAuthenticated means the session is bound to a username.
	SessionAuthenticated
	// SessionEnded is terminal. Every engine operation rejects it.
	SessionEnded
)

func (s SessionState) String() string {
	switch s {
	case SessionAnonymous:
		return "anonymous"
	case SessionAuthenticated:
		return "authenticated"
	case SessionEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Session is the login state of one connection. It has a single owner and
// is not safe for concurrent use; the engine is.
//
// The username is set if and only if the state is SessionAuthenticated.
type Session struct {
	state     SessionState
	username  string
	id        string
	token     string
	since     time.Time
	expiresAt time.Time
}

// NewSession returns an anonymous session.
func NewSession() *Session {
	return &Session{}
}

// State returns the lifecycle state.
func (s *Session) State() SessionState {
	if s == nil {
		return SessionEnded
	}
	return s.state
}

// IsAuthenticated reports whether the session is bound to a user.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.state == SessionAuthenticated
}

// CurrentUser returns the bound username, or false when not authenticated.
func (s *Session) CurrentUser() (string, bool) {
	if !s.IsAuthenticated() {
		return "", false
	}
	return s.username, true
}

// ID returns the persisted session id, or "" when persistence is off.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Token returns the signed session token, or "" when persistence is off.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.token
}

// AuthenticatedAt returns when the current login happened.
func (s *Session) AuthenticatedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.since
}

// ExpiresAt returns the persisted session expiry, or zero when persistence
// is off.
func (s *Session) ExpiresAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.expiresAt
}

// End moves the session to the terminal state and clears its data. It does
// not revoke a persisted record; call Engine.Logout first for that.
func (s *Session) End() {
	if s == nil {
		return
	}
	s.clear()
	s.state = SessionEnded
}

func (s *Session) authenticate(username, id, token string, at, expires time.Time) {
	s.state = SessionAuthenticated
	s.username = username
	s.id = id
	s.token = token
	s.since = at
	s.expiresAt = expires
}

func (s *Session) clear() {
	s.state = SessionAnonymous
	s.username = ""
	s.id = ""
	s.token = ""
	s.since = time.Time{}
	s.expiresAt = time.Time{}
}

// usable returns the error for a session that cannot take part in any
// operation.
func (s *Session) usable() error {
	if s == nil {
		return ErrSessionRequired
	}
	if s.state == SessionEnded {
		return ErrSessionEnded
	}
	return nil
}

// requireAuthenticated returns the bound username or the error for the
// current state.
func (s *Session) requireAuthenticated() (string, error) {
	if err := s.usable(); err != nil {
		return "", err
	}
	if s.state != SessionAuthenticated {
		return "", ErrUnauthenticated
	}
	return s.username, nil
}
