package httpclient

// Package httpclient implements the authenticated HTTP transport and the
// token refresh coordinator. The transport injects the bearer token and
// intercepts 401 responses; the coordinator owns the refresh exchange.

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
	"github.com/proserve/proserve-client/internal/ports"
)

// episodeKey marks a request context whose refresh episode has already
// been spent. A marked request never triggers a second refresh.
type episodeKey struct{}

// credentialEndpoints never trigger a refresh: a 401 there means the
// submitted credentials themselves were wrong.
var credentialEndpoints = []string{"/auth/login", "/auth/register", "/auth/refresh"}

func isCredentialEndpoint(path string) bool {
	for _, p := range credentialEndpoints {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// TransportOptions groups dependencies for Transport.
type TransportOptions struct {
	Store       ports.CredentialStore // required
	Coordinator *RefreshCoordinator   // required
	Logger      *slog.Logger          // optional
}

// Transport is an http.RoundTripper that attaches the current access
// token to outgoing requests and replays a request once after a
// successful token refresh.
type Transport struct {
	store  ports.CredentialStore
	coord  *RefreshCoordinator
	base   http.RoundTripper
	logger *slog.Logger
}

// NewTransport constructs an authenticated transport over base. A nil
// base uses http.DefaultTransport.
func NewTransport(opts TransportOptions, base http.RoundTripper) *Transport {
	if opts.Store == nil {
		panic("CredentialStore is required")
	}
	if opts.Coordinator == nil {
		panic("RefreshCoordinator is required")
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		store:  opts.Store,
		coord:  opts.Coordinator,
		base:   base,
		logger: opts.Logger,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	// Inject only when absent so the refresh exchange keeps its own
	// refresh-token header. An unavailable store sends unauthenticated.
	if out.Header.Get("Authorization") == "" {
		pair, err := t.store.Get(req.Context())
		switch {
		case err == nil:
			out.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		case !errors.Is(err, domainauth.ErrNoCredentials):
			if t.logger != nil {
				t.logger.Warn("credential store unavailable, sending unauthenticated", "error", err)
			}
		}
	}
	if out.Header.Get("X-Request-ID") == "" {
		out.Header.Set("X-Request-ID", uuid.NewString())
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if isCredentialEndpoint(out.URL.Path) {
		return resp, nil
	}
	if req.Context().Value(episodeKey{}) != nil {
		// Refresh already attempted for this request; propagate the 401.
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		// Body cannot be replayed.
		return resp, nil
	}

	pair, refreshErr := t.coord.Refresh(req.Context())
	if refreshErr != nil {
		drainAndClose(resp)
		return nil, refreshErr
	}
	drainAndClose(resp)

	// The new pair is persisted before we get here; the replay never
	// observes the old token.
	retry := req.Clone(withEpisode(req.Context()))
	retry.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	retry.Header.Set("X-Request-ID", out.Header.Get("X-Request-ID"))
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, fmt.Errorf("replay request body: %w", bodyErr)
		}
		retry.Body = body
	}

	if t.logger != nil {
		t.logger.Debug("replaying request after token refresh",
			slog.String("method", retry.Method),
			slog.String("path", retry.URL.Path),
		)
	}
	return t.RoundTrip(retry)
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
