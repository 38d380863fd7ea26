package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
	mocks "github.com/proserve/proserve-client/internal/mocks/auth"
)

func newTestTransport(t *testing.T, store *mocks.MemoryCredentialStore, refresher *mocks.MockTokenRefresher) *http.Client {
	t.Helper()
	coord := NewRefreshCoordinator(CoordinatorOptions{Store: store, Refresher: refresher})
	transport := NewTransport(TransportOptions{Store: store, Coordinator: coord}, nil)
	return &http.Client{Transport: transport}
}

func TestTransport_InjectsBearerAndRequestID(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "a1", RefreshToken: "r1"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestTransport(t, store, &mocks.MockTokenRefresher{})

	resp, err := client.Get(srv.URL + "/things")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTransport_EmptyStoreSendsUnauthenticated(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestTransport(t, store, &mocks.MockTokenRefresher{})

	resp, err := client.Get(srv.URL + "/public")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTransport_ExistingAuthorizationNotOverwritten(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "a1", RefreshToken: "r1"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer r1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestTransport(t, store, &mocks.MockTokenRefresher{})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/refresh", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer r1")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTransport_RefreshAndReplayAfter401(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "stale", RefreshToken: "r1"})

	var (
		mu         sync.Mutex
		requestIDs []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requestIDs = append(requestIDs, r.Header.Get("X-Request-ID"))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	refresher := &mocks.MockTokenRefresher{
		RefreshFunc: func(_ context.Context, refreshToken string) (domainauth.TokenPair, error) {
			assert.Equal(t, "r1", refreshToken)
			return domainauth.TokenPair{AccessToken: "fresh", RefreshToken: "r2"}, nil
		},
	}
	client := newTestTransport(t, store, refresher)

	resp, err := client.Get(srv.URL + "/things")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, refresher.Calls())

	// The replay reuses the original request ID so server logs correlate.
	mu.Lock()
	ids := append([]string(nil), requestIDs...)
	mu.Unlock()
	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1])

	persisted, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", persisted.AccessToken)
}

func TestTransport_ReplayRestoresRequestBody(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "stale", RefreshToken: "r1"})

	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	refresher := &mocks.MockTokenRefresher{
		RefreshFunc: func(context.Context, string) (domainauth.TokenPair, error) {
			return domainauth.TokenPair{AccessToken: "fresh", RefreshToken: "r2"}, nil
		},
	}
	client := newTestTransport(t, store, refresher)

	resp, err := client.Post(srv.URL+"/things", "application/json", strings.NewReader(`{"n":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`{"n":1}`, `{"n":1}`}, bodies)
}

func TestTransport_Second401Propagates(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "stale", RefreshToken: "r1"})

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	refresher := &mocks.MockTokenRefresher{
		RefreshFunc: func(context.Context, string) (domainauth.TokenPair, error) {
			return domainauth.TokenPair{AccessToken: "still-rejected", RefreshToken: "r2"}, nil
		},
	}
	client := newTestTransport(t, store, refresher)

	resp, err := client.Get(srv.URL + "/things")
	require.NoError(t, err)
	defer resp.Body.Close()

	// Exactly one refresh, exactly one replay, then the 401 surfaces.
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 1, refresher.Calls())
	assert.Equal(t, int32(2), hits.Load())
}

func TestTransport_CredentialEndpoints401NeverRefresh(t *testing.T) {
	for _, path := range []string{"/auth/login", "/auth/register", "/auth/refresh"} {
		t.Run(path, func(t *testing.T) {
			store := mocks.NewMemoryCredentialStore()
			store.Seed(domainauth.TokenPair{AccessToken: "a1", RefreshToken: "r1"})

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer srv.Close()

			refresher := &mocks.MockTokenRefresher{}
			client := newTestTransport(t, store, refresher)

			resp, err := client.Post(srv.URL+path, "application/json", strings.NewReader("{}"))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Zero(t, refresher.Calls())
		})
	}
}

func TestTransport_RefreshFailureSurfacesSessionExpired(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "stale", RefreshToken: "r1"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	refresher := &mocks.MockTokenRefresher{
		RefreshFunc: func(context.Context, string) (domainauth.TokenPair, error) {
			return domainauth.TokenPair{}, domainauth.ErrSessionExpired
		},
	}
	client := newTestTransport(t, store, refresher)

	_, err := client.Get(srv.URL + "/things") //nolint:bodyclose // no response on error
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainauth.ErrSessionExpired))

	_, getErr := store.Get(context.Background())
	assert.ErrorIs(t, getErr, domainauth.ErrNoCredentials)
}

func TestTransport_UnreplayableBody401Propagates(t *testing.T) {
	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "stale", RefreshToken: "r1"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	refresher := &mocks.MockTokenRefresher{}
	client := newTestTransport(t, store, refresher)

	// An opaque reader leaves req.GetBody nil, so the request cannot be
	// replayed after a refresh.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/things", struct{ io.Reader }{strings.NewReader("stream")})
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, refresher.Calls())
}

func TestTransport_Concurrent401sShareOneRefresh(t *testing.T) {
	const callers = 6

	store := mocks.NewMemoryCredentialStore()
	store.Seed(domainauth.TokenPair{AccessToken: "stale", RefreshToken: "r1"})

	// Release all stale-token 401s together so every caller observes the
	// failure while the shared exchange is still in flight.
	var stale sync.WaitGroup
	stale.Add(callers)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			stale.Done()
			stale.Wait()
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	refresher := &mocks.MockTokenRefresher{
		RefreshFunc: func(context.Context, string) (domainauth.TokenPair, error) {
			time.Sleep(50 * time.Millisecond)
			return domainauth.TokenPair{AccessToken: "fresh", RefreshToken: "r2"}, nil
		},
	}
	client := newTestTransport(t, store, refresher)

	var wg sync.WaitGroup
	statuses := make([]int, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(srv.URL + "/things")
			if err != nil {
				errs[i] = err
				return
			}
			statuses[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, statuses[i])
	}
	assert.Equal(t, 1, refresher.Calls())
}
