package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
	"github.com/proserve/proserve-client/internal/ports"
)

// withEpisode marks ctx as having spent its refresh episode.
func withEpisode(ctx context.Context) context.Context {
	return context.WithValue(ctx, episodeKey{}, true)
}

// CoordinatorOptions groups dependencies for RefreshCoordinator.
type CoordinatorOptions struct {
	Store     ports.CredentialStore // required
	Refresher ports.TokenRefresher  // required
	Logger    *slog.Logger          // optional
}

// RefreshCoordinator exchanges the refresh token for a new pair when a
// request fails with 401. Concurrent failures coalesce into a single
// in-flight exchange; a failed exchange always fully clears the session
// and notifies subscribed listeners.
type RefreshCoordinator struct {
	store     ports.CredentialStore
	refresher ports.TokenRefresher
	logger    *slog.Logger

	group singleflight.Group
	gen   atomic.Uint64

	mu        sync.Mutex
	listeners []ports.ExpiryListener
}

// NewRefreshCoordinator constructs a new RefreshCoordinator.
func NewRefreshCoordinator(opts CoordinatorOptions) *RefreshCoordinator {
	if opts.Store == nil {
		panic("CredentialStore is required")
	}
	if opts.Refresher == nil {
		panic("TokenRefresher is required")
	}
	return &RefreshCoordinator{
		store:     opts.Store,
		refresher: opts.Refresher,
		logger:    opts.Logger,
	}
}

// Subscribe registers a listener notified when the session expires
// irrecoverably. Listeners run synchronously on the failing path.
func (c *RefreshCoordinator) Subscribe(l ports.ExpiryListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Bump advances the session generation, invalidating any in-flight
// refresh. Called on logout and login so a stale refresh completion
// cannot resurrect a cleared session or clobber a fresh one.
func (c *RefreshCoordinator) Bump() {
	c.gen.Add(1)
}

// Refresh performs at most one token exchange shared by all concurrent
// callers. On success the new pair is durably persisted before Refresh
// returns; on failure the store is cleared and ErrSessionExpired surfaces.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (domainauth.TokenPair, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		// The exchange outlives the originating request: a caller
		// cancelling must not fail the refresh other callers share.
		return c.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return domainauth.TokenPair{}, err
	}
	pair, ok := v.(domainauth.TokenPair)
	if !ok {
		return domainauth.TokenPair{}, errors.New("unexpected refresh result type")
	}
	return pair, nil
}

func (c *RefreshCoordinator) refresh(ctx context.Context) (domainauth.TokenPair, error) {
	gen := c.gen.Load()

	current, err := c.store.Get(ctx)
	if err != nil {
		// Absent or unavailable store: nothing to refresh with.
		c.expire(ctx, "no refresh token available")
		return domainauth.TokenPair{}, fmt.Errorf("read refresh token: %w", domainauth.ErrSessionExpired)
	}

	pair, err := c.refresher.Refresh(ctx, current.RefreshToken)
	if err != nil {
		c.expire(ctx, "refresh token rejected")
		if errors.Is(err, domainauth.ErrSessionExpired) {
			return domainauth.TokenPair{}, err
		}
		return domainauth.TokenPair{}, errors.Join(domainauth.ErrSessionExpired, err)
	}

	if c.gen.Load() != gen {
		// Logout raced the exchange; discard the stale completion.
		return domainauth.TokenPair{}, fmt.Errorf("session cleared during refresh: %w", domainauth.ErrSessionExpired)
	}

	if setErr := c.store.Set(ctx, pair); setErr != nil {
		// The replay must never run on an unpersisted token.
		c.expire(ctx, "persisting refreshed credentials failed")
		return domainauth.TokenPair{}, errors.Join(domainauth.ErrSessionExpired, setErr)
	}

	if c.gen.Load() != gen {
		// Logout landed between the generation check and the write;
		// undo the write rather than resurrect a cleared session.
		if clearErr := c.store.Clear(ctx); clearErr != nil && c.logger != nil {
			c.logger.Warn("clear credentials after stale refresh failed", "error", clearErr)
		}
		return domainauth.TokenPair{}, fmt.Errorf("session cleared during refresh: %w", domainauth.ErrSessionExpired)
	}

	if c.logger != nil {
		c.logger.Debug("token pair refreshed")
	}
	return pair, nil
}

// expire clears persisted credentials and notifies listeners. The core
// never navigates; the application shell reacts to the notification.
func (c *RefreshCoordinator) expire(ctx context.Context, reason string) {
	if err := c.store.Clear(ctx); err != nil && c.logger != nil {
		c.logger.Warn("clear credentials failed", "error", err)
	}

	c.mu.Lock()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("session expired", slog.String("reason", reason))
	}
	for _, l := range listeners {
		l.SessionExpired(ctx, reason)
	}
}
