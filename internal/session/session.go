// Package session owns "who is logged in": the in-memory user plus the
// persisted token, which must never diverge for longer than one call.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"taskdeck/internal/api"
	"taskdeck/internal/auth"
)

const (
	// DefaultRestoreTimeout bounds the startup session validation.
	DefaultRestoreTimeout = 5 * time.Second

	// logoutNotifyTimeout bounds the best-effort server-side logout.
	logoutNotifyTimeout = 3 * time.Second
)

// RestoreResult is the outcome of validating a persisted token at startup.
type RestoreResult struct {
	// User is set when the token resolved to an account.
	User *api.User

	// SessionExpired is set when a token was present but rejected (401) or
	// the validation timed out; the token has been cleared and the caller
	// should route to sign-in.
	SessionExpired bool
}

// Store is the single source of truth for the current session. Construct one
// per process and pass it by reference; there is no package-level instance.
type Store struct {
	client *api.Client
	tokens *auth.TokenStore
	log    *slog.Logger

	// RestoreTimeout overrides DefaultRestoreTimeout when set before Restore.
	RestoreTimeout time.Duration

	mu         sync.Mutex
	user       *api.User
	loading    bool
	loggingOut bool
}

// New creates a session store over the given client and token store.
func New(client *api.Client, tokens *auth.TokenStore, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		client:         client,
		tokens:         tokens,
		log:            log,
		RestoreTimeout: DefaultRestoreTimeout,
	}
}

// Current returns the logged-in user, or nil.
func (s *Store) Current() *api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Loading reports whether a Restore is in progress.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LoggingOut reports whether a Logout is in progress.
func (s *Store) LoggingOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggingOut
}

// Restore validates the persisted token against the backend, once at startup.
// No usable token resolves immediately with no user. A 401 or a timeout
// clears the token and reports SessionExpired. Any other failure leaves the
// token in place, the user unset, and returns the error.
func (s *Store) Restore(ctx context.Context) (RestoreResult, error) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if s.tokens.Token() == "" {
		return RestoreResult{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.RestoreTimeout)
	defer cancel()

	user, err := s.client.Me(ctx)
	if err != nil {
		if api.IsUnauthorized(err) || errors.Is(err, context.DeadlineExceeded) {
			// The client already clears on 401; clearing again covers the
			// timeout path and keeps token and user state in lockstep.
			if cerr := s.tokens.Clear(); cerr != nil {
				s.log.Warn("failed to clear token", "err", cerr)
			}
			return RestoreResult{SessionExpired: true}, nil
		}
		return RestoreResult{}, err
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return RestoreResult{User: user}, nil
}

// Login persists the token (7-day expiry) and sets the user synchronously.
// The caller has already performed the network exchange that produced both.
func (s *Store) Login(token string, user *api.User) error {
	if err := s.tokens.Save(token); err != nil {
		return err
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}

// Logout clears the token and user synchronously, then notifies the backend
// best-effort. A failed notification never fails the local state transition.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.loggingOut = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loggingOut = false
		s.mu.Unlock()
	}()

	token := s.tokens.Token()

	if err := s.tokens.Clear(); err != nil {
		s.log.Warn("failed to clear token", "err", err)
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()

	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, logoutNotifyTimeout)
	defer cancel()
	if _, err := s.client.Logout(ctx, token); err != nil {
		s.log.Debug("logout notification failed", "err", err)
	}
}
