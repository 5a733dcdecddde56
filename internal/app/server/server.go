package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftrota/internal/domain/allowance"
	"shiftrota/internal/domain/auth"
	"shiftrota/internal/domain/department"
	"shiftrota/internal/domain/rota"
	"shiftrota/internal/platform/config"
	"shiftrota/internal/platform/db"
	"shiftrota/internal/platform/docstore"
	"shiftrota/internal/platform/docstore/filestore"
	"shiftrota/internal/platform/docstore/pgstore"
	"shiftrota/internal/platform/docstore/sqlitestore"
	"shiftrota/internal/platform/email"
	"shiftrota/internal/platform/jobs"
	"shiftrota/internal/platform/metrics"
	"shiftrota/internal/platform/notify"
	"shiftrota/internal/platform/sms"
	"shiftrota/internal/transport/http/api"
	allowancehandler "shiftrota/internal/transport/http/handlers/allowance"
	authhandler "shiftrota/internal/transport/http/handlers/auth"
	rotahandler "shiftrota/internal/transport/http/handlers/rota"
	settingshandler "shiftrota/internal/transport/http/handlers/settings"
	"shiftrota/internal/transport/http/middleware"
)

type App struct {
	Config      config.Config
	Store       docstore.Store
	Departments *department.Repository
	Rota        *rota.Service
	Allowances  *allowance.Engine
	Tokens      *auth.TokenService
	Metrics     *metrics.Collector
	Email       notify.Deliverer
	SMS         notify.Deliverer
	Jobs        *jobs.Service
	Router      http.Handler

	pool *pgxpool.Pool
}

// OpenStore opens the document store selected by cfg.StorageDriver. The
// returned pool is non-nil only for postgres and must be closed by the
// caller.
func OpenStore(ctx context.Context, cfg config.Config) (docstore.Store, *pgxpool.Pool, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		store, err := sqlitestore.New(cfg.SQLitePath)
		return store, nil, err
	case config.StoragePostgres:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect failed: %w", err)
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrations failed: %w", err)
		}
		return pgstore.New(pool), pool, nil
	default:
		store, err := filestore.New(cfg.DataDir)
		return store, nil, err
	}
}

// New opens storage, seeds the department configuration when asked to and
// builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	defaults, err := db.LoadSeed(cfg.SeedFile)
	if err != nil {
		return nil, err
	}

	store, pool, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := NewWithStore(cfg, store, defaults)
	app.pool = pool

	if cfg.RunSeed {
		if _, err := db.Seed(ctx, app.Departments, defaults); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}
	return app, nil
}

// NewWithStore wires services and handlers over an already opened store.
// defaults is served while no department configuration is persisted.
func NewWithStore(cfg config.Config, store docstore.Store, defaults *department.Directory) *App {
	departments := department.NewRepository(store, defaults)
	rotaStore := rota.NewStore(store)

	tokens := auth.NewTokenService(store)
	if cfg.ResetTokenTTL > 0 {
		tokens.ResetTTL = cfg.ResetTokenTTL
	}
	if cfg.OTPTTL > 0 {
		tokens.OTPTTL = cfg.OTPTTL
	}
	if cfg.OTPMaxAttempts > 0 {
		tokens.MaxAttempts = cfg.OTPMaxAttempts
	}

	app := &App{
		Config:      cfg,
		Store:       store,
		Departments: departments,
		Rota:        rota.NewService(rotaStore, departments),
		Allowances:  allowance.NewEngine(rotaStore, departments),
		Tokens:      tokens,
		Metrics:     metrics.New(),
		Email:       email.New(cfg),
		SMS:         sms.New(cfg, nil),
		Jobs:        jobs.New(),
	}
	app.Jobs.Schedule(jobs.JobTokenCleanup, cfg.TokenCleanup, app.CleanupTokens)
	app.Router = app.routes()
	return app
}

// CleanupTokens removes expired reset tokens and OTP codes.
func (a *App) CleanupTokens(ctx context.Context) (any, error) {
	removed, err := a.Tokens.CleanupExpired(ctx)
	return map[string]int{"removed": removed}, err
}

func (a *App) routes() http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Session(cfg.EffectiveSessionSecret()))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Store.Ping(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	authHandler := authhandler.NewHandler(a.Departments, a.Tokens, cfg, a.Email, a.SMS, a.Metrics)
	rateLimit := middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute)

	router.Group(func(r chi.Router) {
		r.Use(rateLimit)
		authHandler.RegisterResetLinkRoutes(r)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit)

		authHandler.RegisterRoutes(r)
		rotahandler.NewHandler(a.Departments, a.Rota, a.Metrics).RegisterRoutes(r)
		allowancehandler.NewHandler(a.Allowances, a.Metrics).RegisterRoutes(r)
		settingshandler.NewHandler(a.Departments, a.Metrics).RegisterRoutes(r)
	})

	return router
}

func (a *App) Close() error {
	err := a.Store.Close()
	if a.pool != nil {
		a.pool.Close()
	}
	return err
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Config) error {
	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	app.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      app.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("shift rota server listening", "addr", cfg.Addr, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
