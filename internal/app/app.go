// Package app wires the client's components from a Config. The desktop
// shell, the browser shell and the CLI all start here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"paydesk/pkg/api"
	"paydesk/pkg/config"
	"paydesk/pkg/guard"
	"paydesk/pkg/handlers"
	"paydesk/pkg/metrics"
	"paydesk/pkg/router"
	"paydesk/pkg/services"
	"paydesk/pkg/session"
	"paydesk/pkg/storage"
)

// Runtime is the assembled client.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Storage  session.Storage
	Store    *session.Store
	Client   *api.Client
	Auth     *services.AuthService
	Billing  *services.BillingService
	Router   *router.Router
	Handlers *handlers.Handlers

	closers []func() error
}

// pinger is implemented by storages that live on a network.
type pinger interface {
	Ping(ctx context.Context) error
}

// OpenStorage returns the session backend selected by cfg.SessionStorage.
// The returned close func is never nil.
func OpenStorage(cfg *config.Config) (session.Storage, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(cfg.SessionStorage) {
	case config.StorageMemory:
		return storage.NewMemoryStorage(), noop, nil
	case config.StorageRedis:
		rs, err := storage.NewRedisStorage(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, noop, err
		}
		if cfg.RedisKey != "" {
			rs = rs.WithKey(cfg.RedisKey)
		}
		return rs, rs.Close, nil
	case config.StorageFile, "":
		fs, err := storage.NewFileStorage(cfg.DataDir)
		if err != nil {
			return nil, noop, err
		}
		return fs, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown session storage %q", cfg.SessionStorage)
	}
}

// New assembles a Runtime. Metrics are always collected; whether they are
// served is up to the shell.
func New(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	rt := &Runtime{Config: cfg, Logger: logger, Metrics: metrics.New()}

	st, closeStorage, err := OpenStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}
	rt.Storage = st
	rt.closers = append(rt.closers, closeStorage)

	rt.Store = session.NewStore(st, session.WithLogger(logger))
	rt.Store.Subscribe(func(c session.Change) {
		rt.Metrics.ObserveSessionMutation(string(c.Action))
	})

	client, err := api.New(cfg.APIBaseURL,
		api.WithTimeout(cfg.APITimeout.Std()),
		api.WithObserver(rt.Metrics),
		api.WithLogger(logger),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Client = client
	rt.Auth = services.NewAuthService(client, rt.Store, logger)
	rt.Billing = services.NewBillingService(client, rt.Store, logger)

	rt.Router, err = router.New(router.DefaultRoutes(), guard.New(""), router.WithDecisionHook(func(res router.Resolution) {
		rt.Metrics.ObserveNavigation(res.Route.View, res.Decision.Kind.String())
	}))
	if err != nil {
		rt.Close()
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = rt.Metrics
	}
	rt.Handlers, err = handlers.New(handlers.Deps{
		Sessions: rt.Store,
		Auth:     rt.Auth,
		Billing:  rt.Billing,
		Router:   rt.Router,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	if p, ok := st.(pinger); ok {
		rt.Handlers.SetHealthCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return p.Ping(ctx)
		})
	}
	return rt, nil
}

// Handler returns the full HTTP handler tree.
func (rt *Runtime) Handler() (http.Handler, error) {
	return rt.Handlers.Routes()
}

// Close releases storage connections.
func (rt *Runtime) Close() error {
	var first error
	for _, fn := range rt.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	rt.closers = nil
	return first
}
