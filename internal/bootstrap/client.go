package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/proserve/proserve-client/config"
	"github.com/proserve/proserve-client/internal/adapters/filestore"
	"github.com/proserve/proserve-client/internal/adapters/pgstore"
	redisstore "github.com/proserve/proserve-client/internal/adapters/redis"
	"github.com/proserve/proserve-client/internal/api"
	"github.com/proserve/proserve-client/internal/httpclient"
	"github.com/proserve/proserve-client/internal/ports"
	"github.com/proserve/proserve-client/internal/routing"
	"github.com/proserve/proserve-client/internal/service"
)

// BuildCredentialStore constructs the credential store selected by
// configuration. The returned closer releases any backend connection and
// may be nil for backends without one.
func BuildCredentialStore(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (ports.CredentialStore, func() error, error) {
	switch cfg.Credentials.Backend {
	case config.BackendRedis:
		client, err := ConnectRedis(cfg.Redis, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("redis credential backend: %w", err)
		}
		return redisstore.NewCredentialStoreWithKey(client, cfg.Credentials.Key), client.Close, nil

	case config.BackendPostgres:
		db, err := ConnectDB(cfg.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres credential backend: %w", err)
		}
		store := pgstore.New(db, cfg.Credentials.Key)
		if schemaErr := store.EnsureSchema(ctx); schemaErr != nil {
			closeErr := db.Close()
			return nil, nil, fmt.Errorf("postgres credential backend: %w", errors.Join(schemaErr, closeErr))
		}
		return store, db.Close, nil

	case config.BackendFile, "":
		store, err := filestore.New(cfg.Credentials.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("file credential backend: %w", err)
		}
		return store, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown credential backend %q", cfg.Credentials.Backend)
	}
}

// App is the fully wired client: the session service, the route guard,
// and the identity server client sharing one authenticated HTTP client.
type App struct {
	Config  config.AppConfig
	Store   ports.CredentialStore
	API     *api.Client
	Session *service.SessionService
	Guard   *routing.Guard

	closeStore func() error
}

// BuildApp wires the client from configuration. The identity server
// client, the refresh coordinator, and the authenticated transport form
// a cycle, so the transport is attached to the shared HTTP client last.
func BuildApp(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*App, error) {
	store, closeStore, err := BuildCredentialStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	httpc := &http.Client{Timeout: cfg.API.Timeout}
	apiClient := api.NewClient(api.Options{
		Config:     cfg.API,
		HTTPClient: httpc,
		Logger:     logger,
	})

	coord := httpclient.NewRefreshCoordinator(httpclient.CoordinatorOptions{
		Store:     store,
		Refresher: apiClient,
		Logger:    logger,
	})
	httpc.Transport = httpclient.NewTransport(httpclient.TransportOptions{
		Store:       store,
		Coordinator: coord,
		Logger:      logger,
	}, nil)

	session := service.NewSessionService(service.SessionServiceOptions{
		Store:      store,
		API:        apiClient,
		Invalidate: coord.Bump,
		Logger:     logger,
	})
	coord.Subscribe(session)

	return &App{
		Config:     cfg,
		Store:      store,
		API:        apiClient,
		Session:    session,
		Guard:      routing.NewGuard(cfg.Guard),
		closeStore: closeStore,
	}, nil
}

// Close releases backend connections held by the credential store.
func (a *App) Close() error {
	if a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}
