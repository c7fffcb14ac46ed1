// Package auth holds the storefront's API session: the bearer token attached
// to credentialed requests and its expiry, read from the token itself.
package auth

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the current bearer token. A zero Session is anonymous: calls
// made through it carry no Authorization header.
type Session struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewSession creates a session from an access token. The token's expiry claim
// is read without signature verification: the client holds no signing secret,
// it only needs to know when a refresh is due. A token without a parseable
// expiry is rejected.
func NewSession(token string) (*Session, error) {
	expiresAt, err := tokenExpiry(token)
	if err != nil {
		return nil, err
	}
	return &Session{token: token, expiresAt: expiresAt}, nil
}

// Anonymous returns a session with no credentials.
func Anonymous() *Session {
	return &Session{}
}

// SetToken replaces the session's token, e.g. after a refresh.
func (s *Session) SetToken(token string) error {
	expiresAt, err := tokenExpiry(token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.expiresAt = expiresAt
	s.mu.Unlock()
	return nil
}

// Clear drops the credentials, returning the session to anonymous.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

// Authenticated reports whether the session carries a token.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// ExpiresAt returns the token's expiry. Zero for an anonymous session.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// ExpiresWithin reports whether the token expires within d. An anonymous
// session never expires.
func (s *Session) ExpiresWithin(d time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	return time.Until(s.expiresAt) <= d
}

// Authorize attaches the bearer token to the request when present.
func (s *Session) Authorize(req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

// tokenExpiry extracts the exp claim without verifying the signature.
func tokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("access token has no expiry claim")
	}
	return exp.Time, nil
}
