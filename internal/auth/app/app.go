package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/grant"
	httpapi "github.com/aussiebroadwan/tollgate/internal/auth/http"
	"github.com/aussiebroadwan/tollgate/internal/auth/introspect"
	"github.com/aussiebroadwan/tollgate/internal/auth/metrics"
	"github.com/aussiebroadwan/tollgate/internal/auth/request"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tollgate/internal/auth/token"
	"github.com/aussiebroadwan/tollgate/internal/auth/verifier"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the authorization server with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         *sqlite.Store
	store      store.Store
	requests   io.Closer // Redis connection, nil without AUTH_REDIS_URL
	keyManager *jwtx.KeyManager
	sealer     *cryptox.Sealer
	metrics    *metrics.Metrics

	// Services
	authorizeService     *service.AuthorizeService
	tokenService         *service.TokenService
	introspectionService *service.IntrospectionService
	revocationService    *service.RevocationService
	keyRotationService   *service.KeyRotationService
	housekeepingService  *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tollgate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}
	ctx := slogx.WithContext(context.Background(), app.logger)

	// Pepper first, the seed hashes secrets with it
	if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
		return nil, err
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	// Key manager after the database for persistent mode
	keyManager, sealer, err := InitAuthKeys(ctx, app.cfg, app.db, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager
	app.sealer = sealer

	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.applySeed(ctx); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler is the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("tollgate starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeStores()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down tollgate...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("tollgate stopped")
	return nil
}

// Close releases the stores without touching the HTTP server. For callers
// that only use Handler.
func (app *Application) Close() error {
	return app.closeStores()
}

func (app *Application) closeStores() error {
	if app.requests != nil {
		if err := app.requests.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}
	if app.db == nil {
		return nil
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// initDatabase opens SQLite, applies migrations and, when configured, moves
// authorization requests to Redis.
func (app *Application) initDatabase(ctx context.Context) error {
	dsn := app.cfg.DatabaseFile
	if dsn != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	}
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db
	app.store = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied successfully")

	if app.cfg.RedisURL != "" {
		requests, err := redis.New(ctx, app.cfg.RedisURL, "")
		if err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.requests = requests
		app.store = store.WithAuthorizationRequests(db, requests)
		app.logger.Info("authorization requests stored in redis")
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	builder := token.NewBuilder(app.keyManager)
	password := service.PasswordAuthenticator{}

	grants, err := grant.NewRegistry(
		grant.NewAuthorizationCodeService(builder),
		grant.NewRefreshTokenService(builder),
		grant.NewClientCredentialsService(builder),
		grant.NewPasswordService(builder, password),
	)
	if err != nil {
		return fmt.Errorf("failed to build grant registry: %w", err)
	}

	clients := &service.ClientAuthenticator{Store: app.store}

	app.authorizeService = &service.AuthorizeService{
		Store:         app.store,
		Pipeline:      verifier.Default().WithObserver(app.metrics),
		Jose:          request.NewJoseHandler(),
		Tokens:        builder,
		Authenticator: password,
		Observer:      app.metrics,
	}
	app.tokenService = &service.TokenService{
		Store:    app.store,
		Clients:  clients,
		Grants:   grants,
		Observer: app.metrics,
	}
	app.introspectionService = &service.IntrospectionService{
		Clients:  clients,
		Verifier: introspect.NewVerifier(app.store),
		Observer: app.metrics,
	}
	app.revocationService = &service.RevocationService{Store: app.store, Clients: clients}

	app.housekeepingService = service.NewHousekeepingService(
		app.store,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	// Rotation works in both modes, persistence only with a sealer
	app.keyRotationService = &service.KeyRotationService{
		KeyManager:  app.keyManager,
		RSABits:     app.cfg.RSABits,
		GracePeriod: app.cfg.KeyGracePeriod,
	}
	if app.cfg.KeyStorageMode == KeyStoragePersistent {
		app.keyRotationService.Store = app.db
		app.keyRotationService.Sealer = app.sealer
	}
	return nil
}

func (app *Application) applySeed(ctx context.Context) error {
	if app.cfg.SeedFile == "" {
		app.logger.Warn("no seed file configured, starting without tenants")
		return nil
	}
	seed, err := service.LoadSeedFile(app.cfg.SeedFile)
	if err != nil {
		return err
	}
	bootstrap := &service.BootstrapService{Store: app.store, PublicURL: app.cfg.PublicURL}
	return bootstrap.Apply(ctx, seed)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.keyManager, app.store, app.metrics, app.logger)

	// Wire services to router
	router.CertHeader = app.cfg.ClientCertHeader
	router.AdminToken = app.cfg.AdminToken
	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.IntrospectionService = app.introspectionService
	router.RevocationService = app.revocationService
	router.KeyRotationService = app.keyRotationService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
