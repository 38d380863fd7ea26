// Package mocks provides mock implementations for testing the session lifecycle.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// port interfaces. The mocks are generated using go:generate directives and provide
// a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockStore := mocks.NewMockCredentialStore(ctrl)
//	mockStore.EXPECT().Get(gomock.Any()).Return(pair, nil)
package mocks

// Generate mock for CredentialStore interface from internal/ports.
// This creates MockCredentialStore with methods: Get, Set, Clear.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_store_mock.go github.com/proserve/proserve-client/internal/ports CredentialStore

// Generate mock for IdentityAPI interface from internal/ports.
// This creates MockIdentityAPI with methods: Login, Register, Me, Logout.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_api_mock.go github.com/proserve/proserve-client/internal/ports IdentityAPI

// Generate mock for TokenRefresher interface from internal/ports.
// This creates MockTokenRefresher with method: Refresh.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_refresher_mock.go github.com/proserve/proserve-client/internal/ports TokenRefresher
