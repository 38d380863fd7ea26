package service

// Package service contains the session lifecycle orchestration.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/proserve/proserve-client/internal/api"
	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
	"github.com/proserve/proserve-client/internal/ports"
)

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Store ports.CredentialStore // required
	API   ports.IdentityAPI     // required

	// Invalidate, when set, invalidates in-flight token refreshes.
	// Wired to the refresh coordinator's generation bump.
	Invalidate func()

	Logger *slog.Logger // optional
}

// SessionService is the authoritative representation of "who is logged
// in". It owns the in-memory identity and coordinates the credential
// store and the identity server. All methods are safe for concurrent use.
type SessionService struct {
	store      ports.CredentialStore
	api        ports.IdentityAPI
	invalidate func()
	logger     *slog.Logger

	mu       sync.RWMutex
	identity *domainauth.Identity
	tokens   *domainauth.TokenPair
	lastErr  string
}

var _ ports.ExpiryListener = (*SessionService)(nil)

// NewSessionService constructs a new SessionService.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	if opts.Store == nil {
		panic("CredentialStore is required")
	}
	if opts.API == nil {
		panic("IdentityAPI is required")
	}
	return &SessionService{
		store:      opts.Store,
		api:        opts.API,
		invalidate: opts.Invalidate,
		logger:     opts.Logger,
	}
}

// Initialize hydrates the session from the credential store and, when a
// pair is present, fetches the identity. Safe to call once at process
// start; an empty or unavailable store leaves the session empty.
func (s *SessionService) Initialize(ctx context.Context) error {
	pair, err := s.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, domainauth.ErrNoCredentials) && s.logger != nil {
			s.logger.Warn("credential store unavailable, starting session-less", "error", err)
		}
		return nil
	}

	s.mu.Lock()
	s.tokens = &pair
	s.mu.Unlock()

	return s.FetchUser(ctx)
}

// Login exchanges credentials for a token pair, persists it, and fetches
// the identity. A rejected login leaves any prior session untouched and
// records the server's message; it is never retried.
func (s *SessionService) Login(ctx context.Context, creds ports.Credentials) error {
	pair, err := s.api.Login(ctx, creds)
	if err != nil {
		s.setError(messageOf(err))
		return fmt.Errorf("login: %w", err)
	}

	// A fresh pair starts a new session generation; a refresh still in
	// flight for the old session must not clobber it.
	if s.invalidate != nil {
		s.invalidate()
	}

	if setErr := s.store.Set(ctx, pair); setErr != nil && s.logger != nil {
		s.logger.Warn("persist credentials failed, session is memory-only", "error", setErr)
	}

	s.mu.Lock()
	s.tokens = &pair
	s.lastErr = ""
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("logged in", slog.String("username", creds.Username))
	}
	return s.FetchUser(ctx)
}

// Register submits registration data plus optional identity-verification
// documents. It never establishes a session; professional accounts await
// separate approval.
func (s *SessionService) Register(ctx context.Context, reg ports.Registration) (ports.RegisterResult, error) {
	result, err := s.api.Register(ctx, reg)
	if err != nil {
		s.setError(messageOf(err))
		return ports.RegisterResult{}, fmt.Errorf("register: %w", err)
	}
	return result, nil
}

// Logout clears the identity, the token pair (memory and store), and the
// error state unconditionally. Server-side invalidation is best-effort;
// Logout never fails and is idempotent.
func (s *SessionService) Logout(ctx context.Context) {
	if s.invalidate != nil {
		s.invalidate()
	}

	if s.Snapshot().IsAuthenticated() {
		if err := s.api.Logout(ctx); err != nil && s.logger != nil {
			s.logger.Debug("server-side logout failed", "error", err)
		}
	}

	if err := s.store.Clear(ctx); err != nil && s.logger != nil {
		s.logger.Warn("clear credentials failed", "error", err)
	}

	s.mu.Lock()
	s.identity = nil
	s.tokens = nil
	s.lastErr = ""
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("logged out")
	}
}

// FetchUser refetches the identity using the current access token; an
// expired token is refreshed transparently by the transport. Any failure
// is treated as an unrecoverable session and performs a full logout.
func (s *SessionService) FetchUser(ctx context.Context) error {
	ident, err := s.api.Me(ctx)
	if err != nil {
		s.Logout(ctx)
		s.setError(messageOf(err))
		return fmt.Errorf("fetch user: %w", err)
	}

	s.mu.Lock()
	s.identity = &ident
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

// SessionExpired implements ports.ExpiryListener. The coordinator has
// already cleared the store; drop the in-memory session to match.
func (s *SessionService) SessionExpired(_ context.Context, reason string) {
	s.mu.Lock()
	s.identity = nil
	s.tokens = nil
	s.lastErr = reason
	s.mu.Unlock()
}

// Snapshot returns a copy of the current session. Derived predicates
// (IsAuthenticated, HasRole, status checks) live on the returned value
// and are recomputed per read; the identity is the single source of truth.
func (s *SessionService) Snapshot() domainauth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sess domainauth.Session
	if s.identity != nil {
		ident := *s.identity
		ident.Roles = slices.Clone(s.identity.Roles)
		sess.Identity = &ident
	}
	if s.tokens != nil {
		tokens := *s.tokens
		sess.Tokens = &tokens
	}
	return sess
}

// Err returns the most recent error message, or empty when the last
// operation succeeded.
func (s *SessionService) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *SessionService) setError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

// messageOf prefers the identity server's message payload over the
// wrapped error chain.
func messageOf(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
