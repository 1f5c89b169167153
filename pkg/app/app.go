// Package app wires the shop backend together: stores, cache, storage
// disks, the cart event bus and websocket hub, services and controllers.
//
//	s, _ := config.Build()
//	a, err := app.Boot(ctx, s)
//	if err != nil { ... }
//	defer a.Close(ctx)
//	return a.Serve(ctx)
//
// Tests build one on in-memory stores with New.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modera-shop/modera/app/controllers"
	"github.com/modera-shop/modera/app/repositories"
	"github.com/modera-shop/modera/app/routes"
	"github.com/modera-shop/modera/app/services"
	"github.com/modera-shop/modera/config"
	"github.com/modera-shop/modera/pkg/auth"
	"github.com/modera-shop/modera/pkg/cache"
	"github.com/modera-shop/modera/pkg/database"
	"github.com/modera-shop/modera/pkg/event"
	"github.com/modera-shop/modera/pkg/logger"
	"github.com/modera-shop/modera/pkg/middleware"
	"github.com/modera-shop/modera/pkg/storage"
	"github.com/modera-shop/modera/pkg/ws"
)

// Application holds every long-lived component of the process.
type Application struct {
	Settings *config.Settings
	Stores   *repositories.Stores
	Cache    cache.Store
	Disks    *storage.Manager
	Tokens   *auth.Issuer
	Events   *event.Bus
	Hub      *ws.Hub

	Catalog *services.CatalogService
	Auth    *services.AuthService
	Carts   *services.CartService
	Uploads *services.UploadService

	limiter *middleware.RateLimiter
	done    chan struct{}
	closers []func(context.Context) error
}

// Boot opens the configured store, connects Redis when REDIS_ADDR is set and
// builds the application on top.
func Boot(ctx context.Context, s *config.Settings) (*Application, error) {
	stores, sink, err := openStores(ctx, s)
	if err != nil {
		return nil, err
	}

	var extra []slog.Handler
	if sink != nil {
		extra = append(extra, sink)
	}
	logger.Setup(s.Env, extra...)

	var store cache.Store = cache.NewMemory()
	redis, err := cache.Connect(ctx, s.RedisAddr, s.RedisPassword, "modera:")
	if err != nil {
		logger.Warn("cache: redis unavailable, using in-process cache", "addr", s.RedisAddr, "error", err)
	} else if redis != nil {
		store = redis
	}

	a := New(s, stores, store, storage.NewManager(ctx, s))
	if redis != nil {
		a.closers = append(a.closers, func(context.Context) error { return redis.Close() })
	}
	if sink != nil {
		a.closers = append(a.closers, func(context.Context) error { sink.Close(); return nil })
	}
	return a, nil
}

// Open connects the configured store without building the rest of the
// application. The migrate and seed commands use it.
func Open(ctx context.Context, s *config.Settings) (*repositories.Stores, error) {
	stores, _, err := openStores(ctx, s)
	return stores, err
}

func openStores(ctx context.Context, s *config.Settings) (*repositories.Stores, *logger.MongoHandler, error) {
	if s.StoreDriver == "sql" {
		db, err := database.Open(s.SQLDriver, s.SQLDSN)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewSQL(db), nil, nil
	}

	client, err := database.ConnectMongo(ctx, s.MongoURL)
	if err != nil {
		return nil, nil, err
	}
	db := client.Database(s.MongoDatabase)

	var sink *logger.MongoHandler
	if s.LogMongoCollection != "" {
		sink = logger.NewMongoHandler(ctx, db, s.LogMongoCollection)
	}
	return repositories.NewMongo(db), sink, nil
}

// New builds the application on explicit dependencies and starts the hub
// and rate limiter loops. Close stops them.
func New(s *config.Settings, stores *repositories.Stores, c cache.Store, disks *storage.Manager) *Application {
	a := &Application{
		Settings: s,
		Stores:   stores,
		Cache:    c,
		Disks:    disks,
		Tokens:   auth.NewIssuer(s.JWTSecret),
		Events:   event.NewBus(),
		Hub:      ws.NewHub(s.CORSOrigins),
		limiter:  middleware.NewRateLimiter(s.RateLimitPerMinute, time.Minute),
		done:     make(chan struct{}),
	}

	a.Catalog = services.NewCatalogService(stores.Catalog, c, s.CatalogCacheTTL, s.BaseURL)
	a.Auth = services.NewAuthService(stores.Accounts, a.Tokens)
	a.Carts = services.NewCartService(stores.Accounts, stores.Catalog, a.Events)
	a.Uploads = services.NewUploadService(disks, s.BaseURL)

	a.Hub.Follow(a.Events)
	go a.Hub.Run(a.done)
	go a.limiter.Run(a.done)
	return a
}

// Close stops the background loops, detaches event listeners and releases
// the store, cache and log sink. It is safe to call twice.
func (a *Application) Close(ctx context.Context) error {
	select {
	case <-a.done:
		return nil
	default:
		close(a.done)
	}
	a.Events.Flush()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Stores.Close != nil {
		if err := a.Stores.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s store: %w", a.Stores.Driver, err))
		}
	}
	return errors.Join(errs...)
}

func (a *Application) handlers() (routes.Handlers, error) {
	gql, err := controllers.NewGraphQLController(a.Catalog)
	if err != nil {
		return routes.Handlers{}, fmt.Errorf("graphql schema: %w", err)
	}

	var images http.Handler
	if local := a.Disks.Local(); local != nil {
		images = http.FileServer(http.Dir(local.Root()))
	}

	return routes.Handlers{
		Catalog: controllers.NewCatalogController(a.Catalog),
		Auth:    controllers.NewAuthController(a.Auth),
		Cart:    controllers.NewCartController(a.Carts),
		Upload:  controllers.NewUploadController(a.Uploads, a.Settings.MaxBodyBytes),
		Stream:  controllers.NewStreamController(a.Hub),
		GraphQL: gql,
		Images:  images,
		Tokens:  a.Tokens,
	}, nil
}
