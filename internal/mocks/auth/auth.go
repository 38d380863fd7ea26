package auth

// Package auth contains simple hand-written test doubles for the session
// lifecycle ports. These are lightweight and suitable for unit tests
// without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
	"github.com/proserve/proserve-client/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.CredentialStore = (*MemoryCredentialStore)(nil)
	_ ports.IdentityAPI     = (*MockIdentityAPI)(nil)
	_ ports.TokenRefresher  = (*MockTokenRefresher)(nil)
	_ ports.ExpiryListener  = (*RecordingExpiryListener)(nil)
)

// MemoryCredentialStore is an in-memory credential store for unit tests.
// It is safe for concurrent use and counts mutations so tests can assert
// on persistence ordering.
type MemoryCredentialStore struct {
	mu   sync.Mutex
	pair *domainauth.TokenPair

	Sets   int
	Clears int

	// GetErr, SetErr and ClearErr, when set, are returned instead of
	// touching the stored pair.
	GetErr   error
	SetErr   error
	ClearErr error
}

// NewMemoryCredentialStore creates an empty in-memory store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

// Seed pre-populates the store without counting as a Set.
func (m *MemoryCredentialStore) Seed(pair domainauth.TokenPair) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = &pair
}

func (m *MemoryCredentialStore) Get(_ context.Context) (domainauth.TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return domainauth.TokenPair{}, m.GetErr
	}
	if m.pair == nil {
		return domainauth.TokenPair{}, domainauth.ErrNoCredentials
	}
	return *m.pair, nil
}

func (m *MemoryCredentialStore) Set(_ context.Context, pair domainauth.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Sets++
	m.pair = &pair
	return nil
}

func (m *MemoryCredentialStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Clears++
	m.pair = nil
	return nil
}

// MockIdentityAPI simulates the identity server with func fields. Unset
// funcs return deterministic defaults.
type MockIdentityAPI struct {
	LoginFunc    func(ctx context.Context, creds ports.Credentials) (domainauth.TokenPair, error)
	RegisterFunc func(ctx context.Context, reg ports.Registration) (ports.RegisterResult, error)
	MeFunc       func(ctx context.Context) (domainauth.Identity, error)
	LogoutFunc   func(ctx context.Context) error

	// DefaultUser is returned by Me when MeFunc is unset.
	DefaultUser domainauth.Identity

	mu          sync.Mutex
	loginCalls  int
	meCalls     int
	logoutCalls int
}

// NewMockIdentityAPI creates a MockIdentityAPI with a sensible default user.
func NewMockIdentityAPI() *MockIdentityAPI {
	return &MockIdentityAPI{
		DefaultUser: domainauth.Identity{
			ID:       1,
			Username: "mock-user",
			Name:     "Mock User",
			Email:    "mock.user@example.com",
			Roles:    []domainauth.RoleRef{{Name: domainauth.RoleCustomer}},
			Status:   domainauth.StatusApproved,
		},
	}
}

func (m *MockIdentityAPI) Login(ctx context.Context, creds ports.Credentials) (domainauth.TokenPair, error) {
	m.mu.Lock()
	m.loginCalls++
	m.mu.Unlock()
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	return domainauth.TokenPair{AccessToken: "mock-access", RefreshToken: "mock-refresh"}, nil
}

func (m *MockIdentityAPI) Register(ctx context.Context, reg ports.Registration) (ports.RegisterResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, reg)
	}
	return ports.RegisterResult{Message: "account created"}, nil
}

func (m *MockIdentityAPI) Me(ctx context.Context) (domainauth.Identity, error) {
	m.mu.Lock()
	m.meCalls++
	m.mu.Unlock()
	if m.MeFunc != nil {
		return m.MeFunc(ctx)
	}
	return m.DefaultUser, nil
}

func (m *MockIdentityAPI) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.logoutCalls++
	m.mu.Unlock()
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	return nil
}

// LoginCalls reports how many times Login was invoked.
func (m *MockIdentityAPI) LoginCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginCalls
}

// MeCalls reports how many times Me was invoked.
func (m *MockIdentityAPI) MeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meCalls
}

// LogoutCalls reports how many times Logout was invoked.
func (m *MockIdentityAPI) LogoutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logoutCalls
}

// MockTokenRefresher simulates the refresh exchange with a func field.
type MockTokenRefresher struct {
	RefreshFunc func(ctx context.Context, refreshToken string) (domainauth.TokenPair, error)

	mu    sync.Mutex
	calls int
}

func (m *MockTokenRefresher) Refresh(ctx context.Context, refreshToken string) (domainauth.TokenPair, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return domainauth.TokenPair{AccessToken: "refreshed-access", RefreshToken: "refreshed-refresh"}, nil
}

// Calls reports how many times Refresh was invoked.
func (m *MockTokenRefresher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// RecordingExpiryListener records expiry notifications for assertions.
type RecordingExpiryListener struct {
	mu      sync.Mutex
	reasons []string
}

func (r *RecordingExpiryListener) SessionExpired(_ context.Context, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

// Reasons returns a copy of the recorded expiry reasons in order.
func (r *RecordingExpiryListener) Reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.reasons))
	copy(out, r.reasons)
	return out
}
