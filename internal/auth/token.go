// Package auth persists the session credential between invocations.
package auth

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenTTL is how long a saved token stays usable before it is treated as
// absent. Matches the backend's 7-day session cookie.
const TokenTTL = 7 * 24 * time.Hour

// TokenStore is a file-backed credential store. The token is saved as an
// oauth2.Token JSON blob (access_token + expiry) with mode 0600.
type TokenStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewTokenStore creates a store persisting to the given file path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path, now: time.Now}
}

// Token returns the stored credential, or "" when there is no usable session.
// A missing file, an expired token, a token whose JWT exp claim has passed,
// and the literal strings "null"/"undefined" all read as "no token".
func (s *TokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return ""
	}
	raw := tok.AccessToken
	if raw == "" || raw == "null" || raw == "undefined" {
		return ""
	}
	if !tok.Expiry.IsZero() && !tok.Expiry.After(s.now()) {
		return ""
	}
	if jwtExpired(raw, s.now()) {
		return ""
	}
	return raw
}

// Present reports whether a usable token is stored.
func (s *TokenStore) Present() bool {
	return s.Token() != ""
}

// Save persists the credential with a 7-day expiry, mode 0600.
func (s *TokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      s.now().Add(TokenTTL),
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Clear removes the stored credential. Missing file is not an error.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// jwtExpired reports whether raw is a JWT whose exp claim has passed.
// Opaque (non-JWT) tokens report false; the backend decides their validity.
func jwtExpired(raw string, now time.Time) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
