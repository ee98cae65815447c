package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/folkout/folkout/internal/account"
	"github.com/folkout/folkout/internal/assets"
	"github.com/folkout/folkout/internal/auth"
	"github.com/folkout/folkout/internal/config"
	"github.com/folkout/folkout/internal/election"
	"github.com/folkout/folkout/internal/library"
	"github.com/folkout/folkout/internal/metrics"
	"github.com/folkout/folkout/internal/scheduler"
	"github.com/folkout/folkout/internal/service"
	"github.com/folkout/folkout/internal/storage/sqlite"
	"github.com/folkout/folkout/internal/vote"
	"github.com/folkout/folkout/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app := &cli.Command{
		Name:  "folkout",
		Usage: "Group vote service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the API server and the vote scheduler",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, logger, err := loadConfig(c)
					if err != nil {
						return err
					}
					return serve(ctx, cfg, logger)
				},
			},
			{
				Name:  "migrate",
				Usage: "Apply pending database migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, logger, err := loadConfig(c)
					if err != nil {
						return err
					}
					store, err := sqlite.New(cfg.Database.Path)
					if err != nil {
						return err
					}
					defer store.Close()

					logger.Info("Database is up to date", "path", cfg.Database.Path, "version", store.SchemaVersion())
					return nil
				},
			},
			{
				Name:  "sweep",
				Usage: "Resolve overdue proposals and remove inactive accounts once",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, logger, err := loadConfig(c)
					if err != nil {
						return err
					}
					return sweepOnce(ctx, cfg, logger)
				},
			},
		},
	}

	return app.Run(ctx, os.Args)
}

func loadConfig(c *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	logger := logging.Setup(cfg.Log.Level)
	return cfg, logger, nil
}

// app holds the wired services shared by serve and sweep.
type app struct {
	store     *sqlite.SQLiteStore
	jwt       *auth.JWTManager
	scheduler *scheduler.Scheduler
	engine    *vote.Engine
	elections *election.Service
	accounts  *account.Service
	library   *library.Service
	assets    assets.Store
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "database", cfg.Database.Path, "schema_version", store.SchemaVersion())

	assetStore, err := assets.New(ctx, cfg.AssetConfig())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize asset storage: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Accounts.SessionTTL)
	authn := auth.NewSecretAuthenticator(store, cfg.Accounts.GroupCapacity).WithCost(cfg.Auth.BcryptCost)

	retry := scheduler.DefaultRetryOptions()
	retry.MaxElapsedTime = cfg.Scheduler.RetryMaxElapsed
	retry.MaxRetries = cfg.Scheduler.RetryMax

	sched := scheduler.New(store,
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(m),
		scheduler.WithSweepInterval(cfg.Scheduler.SweepInterval),
		scheduler.WithRetryOptions(retry),
	)
	elections := election.NewService(store, logger)
	engine := vote.NewEngine(store, sched, elections,
		vote.WithAssets(assetStore),
		vote.WithMetrics(m),
		vote.WithLogger(logger),
		vote.WithDefaultDuration(cfg.Votes.DefaultDuration),
	)

	return &app{
		store:     store,
		jwt:       jwtManager,
		scheduler: sched,
		engine:    engine,
		elections: elections,
		accounts:  account.NewService(store, authn, jwtManager, assetStore, m, cfg.AccountConfig(), logger),
		library:   library.NewService(store, elections, logger),
		assets:    assetStore,
	}, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.store.Close()

	if _, err := a.scheduler.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover open proposals: %w", err)
	}

	mux := http.NewServeMux()

	opts := service.HandlerOptions(a.jwt, a.store, logger, service.PublicProcedures()...)
	service.NewVoteService(a.engine).Register(mux, opts...)
	service.NewElectionService(a.elections).Register(mux, opts...)
	service.NewAccountService(a.accounts, cfg.Server.SecureCookie).Register(mux, opts...)
	service.NewLibraryService(a.library).Register(mux, opts...)

	if cfg.Server.MetricsPath != "" {
		mux.Handle(cfg.Server.MetricsPath, promhttp.Handler())
	}
	if _, ok := a.assets.(*assets.LocalStore); ok {
		mux.Handle(assets.URLPrefix, http.StripPrefix(assets.URLPrefix, http.FileServer(http.Dir(cfg.Assets.LocalPath))))
	}
	if cfg.Server.StaticDir != "" {
		h, err := staticHandler(cfg.Server.StaticDir, logger)
		if err != nil {
			return err
		}
		mux.Handle("/", h)
	}

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Connect server starting", "address", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return a.scheduler.Run(ctx, a.engine)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.Accounts.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := a.accounts.SweepInactive(ctx); err != nil {
					logger.Error("Account sweep failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

func sweepOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.store.Close()

	resolved, err := a.scheduler.Sweep(ctx, a.engine)
	if err != nil {
		return fmt.Errorf("proposal sweep failed: %w", err)
	}
	removed, err := a.accounts.SweepInactive(ctx)
	if err != nil {
		return fmt.Errorf("account sweep failed: %w", err)
	}

	logger.Info("Sweep finished", "proposals", resolved, "accounts_removed", removed)
	return nil
}

// staticHandler serves the frontend, falling back to index.html for unknown
// paths.
func staticHandler(staticPath string, logger *slog.Logger) (http.Handler, error) {
	staticDir, err := filepath.Abs(staticPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static path: %w", err)
	}
	logger.Info("Serving static files", "path", staticDir)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/folkout.v1.") {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(urlPath))
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}

		http.ServeFile(w, r, filePath)
	}), nil
}

// loggingMiddleware logs plain HTTP requests. RPCs are logged by the
// Connect interceptor.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		if !strings.HasPrefix(r.URL.Path, "/folkout.v1.") {
			slog.Debug("Request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
