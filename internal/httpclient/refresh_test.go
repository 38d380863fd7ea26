package httpclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
	mocks "github.com/proserve/proserve-client/internal/mocks/auth"
)

func TestRefreshCoordinator_Success_PersistsBeforeReturn(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "old-a", RefreshToken: "old-r"})

	refresher := &mocks.MockTokenRefresher{
		RefreshFunc: func(_ context.Context, refreshToken string) (domainauth.TokenPair, error) {
			assert.Equal(t, "old-r", refreshToken)
			return domainauth.TokenPair{AccessToken: "new-a", RefreshToken: "new-r"}, nil
		},
	}

	coord := NewRefreshCoordinator(CoordinatorOptions{Store: store, Refresher: refresher})

	pair, err := coord.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-a", pair.AccessToken)

	persisted, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domainauth.TokenPair{AccessToken: "new-a", RefreshToken: "new-r"}, persisted)
}

func TestRefreshCoordinator_ConcurrentCallersShareOneExchange(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "old-a", RefreshToken: "old-r"})

	release := make(chan struct{})
	refresher := &mocks.MockTokenRefresher{
		RefreshFunc: func(context.Context, string) (domainauth.TokenPair, error) {
			<-release
			return domainauth.TokenPair{AccessToken: "new-a", RefreshToken: "new-r"}, nil
		},
	}

	coord := NewRefreshCoordinator(CoordinatorOptions{Store: store, Refresher: refresher})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]domainauth.TokenPair, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = coord.Refresh(context.Background())
		}(i)
	}

	// Let the goroutines pile up on the in-flight exchange.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "new-a", results[i].AccessToken)
	}
	assert.Equal(t, 1, refresher.Calls())
}

func TestRefreshCoordinator_RejectedRefresh_ClearsAndNotifies(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "old-a", RefreshToken: "old-r"})

	refresher := &mocks.MockTokenRefresher{
		RefreshFunc: func(context.Context, string) (domainauth.TokenPair, error) {
			return domainauth.TokenPair{}, domainauth.ErrSessionExpired
		},
	}

	coord := NewRefreshCoordinator(CoordinatorOptions{Store: store, Refresher: refresher})
	var listener mocks.RecordingExpiryListener
	coord.Subscribe(&listener)

	_, err := coord.Refresh(context.Background())
	require.ErrorIs(t, err, domainauth.ErrSessionExpired)

	_, getErr := store.Get(context.Background())
	assert.ErrorIs(t, getErr, domainauth.ErrNoCredentials)
	assert.Equal(t, []string{"refresh token rejected"}, listener.Reasons())
}

func TestRefreshCoordinator_NoStoredCredentials(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	refresher := &mocks.MockTokenRefresher{}

	coord := NewRefreshCoordinator(CoordinatorOptions{Store: store, Refresher: refresher})
	var listener mocks.RecordingExpiryListener
	coord.Subscribe(&listener)

	_, err := coord.Refresh(context.Background())
	require.ErrorIs(t, err, domainauth.ErrSessionExpired)
	assert.Zero(t, refresher.Calls())
	assert.Equal(t, []string{"no refresh token available"}, listener.Reasons())
}

func TestRefreshCoordinator_TransportError_WrapsSessionExpired(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "old-a", RefreshToken: "old-r"})

	boom := errors.New("connection refused")
	refresher := &mocks.MockTokenRefresher{
		RefreshFunc: func(context.Context, string) (domainauth.TokenPair, error) {
			return domainauth.TokenPair{}, boom
		},
	}

	coord := NewRefreshCoordinator(CoordinatorOptions{Store: store, Refresher: refresher})

	_, err := coord.Refresh(context.Background())
	require.ErrorIs(t, err, domainauth.ErrSessionExpired)
	assert.ErrorIs(t, err, boom)
}

func TestRefreshCoordinator_BumpDuringExchange_DiscardsResult(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "old-a", RefreshToken: "old-r"})

	var coord *RefreshCoordinator
	refresher := &mocks.MockTokenRefresher{
		RefreshFunc: func(context.Context, string) (domainauth.TokenPair, error) {
			// Logout lands while the exchange is in flight.
			coord.Bump()
			return domainauth.TokenPair{AccessToken: "new-a", RefreshToken: "new-r"}, nil
		},
	}
	coord = NewRefreshCoordinator(CoordinatorOptions{Store: store, Refresher: refresher})

	_, err := coord.Refresh(context.Background())
	require.ErrorIs(t, err, domainauth.ErrSessionExpired)

	// The stale pair must not have been persisted.
	got, getErr := store.Get(context.Background())
	require.NoError(t, getErr)
	assert.Equal(t, "old-a", got.AccessToken)
}

func TestRefreshCoordinator_PersistFailure_Expires(t *testing.T) {
	boom := errors.New("disk full")
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "old-a", RefreshToken: "old-r"})
	store.SetErr = boom

	refresher := &mocks.MockTokenRefresher{}

	coord := NewRefreshCoordinator(CoordinatorOptions{Store: store, Refresher: refresher})
	var listener mocks.RecordingExpiryListener
	coord.Subscribe(&listener)

	_, err := coord.Refresh(context.Background())
	require.ErrorIs(t, err, domainauth.ErrSessionExpired)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"persisting refreshed credentials failed"}, listener.Reasons())
}

func TestRefreshCoordinator_CancelledCallerDoesNotFailExchange(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "old-a", RefreshToken: "old-r"})

	refresher := &mocks.MockTokenRefresher{
		RefreshFunc: func(ctx context.Context, _ string) (domainauth.TokenPair, error) {
			require.NoError(t, ctx.Err())
			return domainauth.TokenPair{AccessToken: "new-a", RefreshToken: "new-r"}, nil
		},
	}

	coord := NewRefreshCoordinator(CoordinatorOptions{Store: store, Refresher: refresher})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pair, err := coord.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-a", pair.AccessToken)
}

func TestNewRefreshCoordinator_RequiresDependencies(t *testing.T) {
	assert.Panics(t, func() {
		NewRefreshCoordinator(CoordinatorOptions{Refresher: &mocks.MockTokenRefresher{}})
	})
	assert.Panics(t, func() {
		NewRefreshCoordinator(CoordinatorOptions{Store: mocks.NewMemoryCredentialStore()})
	})
}
