// Package main runs the collection manager API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/morarasu-alexandru/nft-collection-manager/internal/app"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/identity"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/httpapi"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/metrics"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/services/catalog"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage/postgres"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/config"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/database"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/middleware"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/platform/migrations"
	"github.com/morarasu-alexandru/nft-collection-manager/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	// Missing .env files are fine; environment may already be populated.
	_ = godotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("server", cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("server exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()

	store, resolver, cleanup, err := buildBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := app.Options{
		AuditSchedule: cfg.Audit.SweepSchedule,
		DisableAudit:  cfg.Audit.SweepDisabled,
	}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		defer client.Close()
		opts.Cache = catalog.NewRedisCache(client, cfg.Redis.CacheTTL, log)
		log.WithField("addr", cfg.Redis.Addr).Info("catalog cache enabled")
	}

	application, err := app.New(app.Stores{Assets: store}, resolver, log, opts)
	if err != nil {
		return fmt.Errorf("building application: %w", err)
	}
	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("starting application: %w", err)
	}

	handler, err := httpapi.NewHandler(application, httpapi.HandlerOptions{
		AuditMax:  cfg.Audit.MaxEntries,
		AuditFile: cfg.Audit.File,
	})
	if err != nil {
		return fmt.Errorf("building handler: %w", err)
	}

	auth := middleware.NewAuthMiddleware(resolver, log, []string{"/healthz", "/metrics"})
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst, log)
	cors := middleware.NewCORSMiddleware(cfg.Server.CORSOrigins)
	logging := middleware.LoggingMiddleware(log)

	chain := metrics.InstrumentHandler(
		logging(cors.Handler(auth.Handler(limiter.Handler(handler)))))

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.ListenAddr).Info("server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop")
	}
	log.Info("server stopped")
	return nil
}

// buildBackend selects the asset store and identity resolver for the
// configured mode.
func buildBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.AssetStore, identity.Resolver, func(), error) {
	noop := func() {}

	switch cfg.Store.Mode {
	case config.StoreMemory:
		return nil, staticResolver(cfg), noop, nil

	case config.StorePostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := migrations.Apply(ctx, db.DB); err != nil {
			db.Close()
			return nil, nil, noop, fmt.Errorf("applying migrations: %w", err)
		}
		log.Info("postgres store ready")
		return postgres.New(db), staticResolver(cfg), func() { db.Close() }, nil

	case config.StoreSupabase:
		client, err := database.NewClient(database.Config{
			URL:        cfg.Supabase.URL,
			ServiceKey: cfg.Supabase.ServiceKey,
		})
		if err != nil {
			return nil, nil, noop, fmt.Errorf("creating supabase client: %w", err)
		}

		var resolver identity.Resolver = database.NewIdentityResolver(client)
		if cfg.Supabase.JWTSecret != "" {
			verifier, err := middleware.NewJWTVerifier([]byte(cfg.Supabase.JWTSecret))
			if err != nil {
				return nil, nil, noop, fmt.Errorf("creating jwt verifier: %w", err)
			}
			resolver = identity.Composite{Tokens: verifier, Emails: resolver}
			log.Info("offline token verification enabled")
		}
		return database.NewAssetRepository(client), resolver, noop, nil

	default:
		return nil, nil, noop, fmt.Errorf("unknown store mode %q", cfg.Store.Mode)
	}
}

func staticResolver(cfg *config.Config) *identity.StaticResolver {
	r := identity.NewStaticResolver()
	for _, u := range cfg.DevUsers {
		r.AddUser(u.Token, u.ID, u.Email)
	}
	return r
}
