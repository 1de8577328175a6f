package verge

import "sync"

// Session holds the bearer credential used for every backend call.
//
// A session built from a username/password pair logs in lazily and can be
// refreshed after the backend rejects the token. A session built from a
// static token only ever uses that token.
type Session struct {
	mu       sync.Mutex
	username string
	password string
	static   string
	token    string
}

// NewSession creates a session. When both a credential pair and a static
// token are supplied, the credential pair takes priority.
func NewSession(username, password, token string) *Session {
	s := &Session{
		username: username,
		password: password,
	}
	if !s.CanRefresh() {
		s.static = token
		s.token = token
	}
	return s
}

// CanRefresh reports whether the session can obtain a new token by logging in.
func (s *Session) CanRefresh() bool {
	return s.username != "" && s.password != ""
}

// Token returns the current token, or an empty string when none is held.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Valid reports whether the session currently holds a token.
func (s *Session) Valid() bool {
	return s.Token() != ""
}

// Set stores a freshly obtained token.
func (s *Session) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Invalidate drops a login-obtained token so the next call logs in again.
// Static tokens are kept.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.static == "" {
		s.token = ""
	}
}

func (s *Session) credentials() (string, string) {
	return s.username, s.password
}
