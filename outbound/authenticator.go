package outbound

import (
	"net/http"
	"sync"

	"github.com/rentdesk/sessiongate/session"
)

// SessionErrorSignal is raised when a backend call reveals the session is
// no longer valid. Any component may raise it; consumers must treat it as
// "invalidate session now" (forced sign-out and redirect to sign-in).
type SessionErrorSignal struct {
	mu       sync.Mutex
	handlers []func()
}

// Subscribe registers a handler invoked on every raise.
func (s *SessionErrorSignal) Subscribe(handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Raise notifies all subscribers.
func (s *SessionErrorSignal) Raise() {
	s.mu.Lock()
	handlers := make([]func(), len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, handler := range handlers {
		handler()
	}
}

// TokenStore is the local fallback for code paths that do not share the
// authenticated network client instance.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func (ts *TokenStore) Set(token string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = token
}

func (ts *TokenStore) Get() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.token
}

// Authenticator attaches the current bearer token to every backend call
// issued through its client. It does not retry on 401; it raises the
// session-error signal and lets the response through.
type Authenticator struct {
	mu       sync.RWMutex
	token    string
	base     http.RoundTripper
	fallback *TokenStore
	signal   *SessionErrorSignal
}

func NewAuthenticator(base http.RoundTripper, signal *SessionErrorSignal) *Authenticator {
	if base == nil {
		base = http.DefaultTransport
	}
	if signal == nil {
		signal = &SessionErrorSignal{}
	}
	return &Authenticator{
		base:     base,
		fallback: &TokenStore{},
		signal:   signal,
	}
}

// SetSession adopts the session's token as the default bearer if it
// differs from the previously attached one, mirroring it into the
// fallback store.
func (a *Authenticator) SetSession(sess session.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if sess.AccessToken == a.token {
		return
	}
	a.token = sess.AccessToken
	a.fallback.Set(sess.AccessToken)
}

// Fallback returns the local token store.
func (a *Authenticator) Fallback() *TokenStore {
	return a.fallback
}

// Signal returns the session-error signal shared by this authenticator.
func (a *Authenticator) Signal() *SessionErrorSignal {
	return a.signal
}

// Client returns an HTTP client that sends every request through the
// authenticator.
func (a *Authenticator) Client() *http.Client {
	return &http.Client{Transport: a}
}

// RoundTrip implements http.RoundTripper. The request is cloned before the
// header is set, per the RoundTripper contract.
func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	a.mu.RLock()
	token := a.token
	a.mu.RUnlock()

	if token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		a.signal.Raise()
	}

	return resp, nil
}
