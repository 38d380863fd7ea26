package ports

// Package ports defines interfaces (hexagonal ports) for the session
// lifecycle. Implementations live in internal/adapters and internal/api;
// orchestration in internal/service.

import (
	"context"
	"io"

	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
)

// CredentialStore durably persists the token pair. Set writes both tokens
// atomically; a store must never expose a half-written pair. Get returns
// domainauth.ErrNoCredentials when nothing is persisted. Callers treat an
// unavailable store as absent credentials and continue session-less.
type CredentialStore interface {
	Get(ctx context.Context) (domainauth.TokenPair, error)
	Set(ctx context.Context, pair domainauth.TokenPair) error
	Clear(ctx context.Context) error
}

// Credentials are the inputs to a login attempt.
type Credentials struct {
	Username string
	Password string
}

// Document is an identity-verification upload submitted at registration.
type Document struct {
	Type    string
	Name    string
	Content io.Reader
}

// Registration groups the multipart registration payload. Documents are
// optional; professional accounts typically attach them for approval.
type Registration struct {
	Username    string
	Password    string
	Email       string
	Name        string
	PhoneNumber string
	Role        domainauth.Role
	Description string
	Experience  string
	ServiceType string
	Documents   []Document
}

// RegisterResult is the server's creation summary. Registration never
// establishes a session; new professional accounts await approval.
type RegisterResult struct {
	Message string
}

// IdentityAPI is the identity server surface used by the session service.
type IdentityAPI interface {
	Login(ctx context.Context, creds Credentials) (domainauth.TokenPair, error)
	Register(ctx context.Context, reg Registration) (RegisterResult, error)
	Me(ctx context.Context) (domainauth.Identity, error)
	Logout(ctx context.Context) error
}

// TokenRefresher exchanges a refresh token for a new token pair. The
// exchange authenticates with the refresh token itself, not the access
// token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (domainauth.TokenPair, error)
}

// ExpiryListener is notified when the session is irrecoverably expired
// (refresh token absent or rejected). The application shell subscribes to
// redirect to its login surface; the core never navigates on its own.
type ExpiryListener interface {
	SessionExpired(ctx context.Context, reason string)
}
