package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/geocoder89/eventparser/internal/auth"
	"github.com/geocoder89/eventparser/internal/config"
	"github.com/geocoder89/eventparser/internal/db"
	"github.com/geocoder89/eventparser/internal/extraction"
	"github.com/geocoder89/eventparser/internal/extraction/gemini"
	httpx "github.com/geocoder89/eventparser/internal/http"
	"github.com/geocoder89/eventparser/internal/http/middlewares"
	"github.com/geocoder89/eventparser/internal/objectstore"
	"github.com/geocoder89/eventparser/internal/observability"
	"github.com/geocoder89/eventparser/internal/ocr/tesseract"
	"github.com/geocoder89/eventparser/internal/queue/redisclient"
	"github.com/geocoder89/eventparser/internal/repo/memory"
	"github.com/geocoder89/eventparser/internal/repo/postgres"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the metrics listener",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "apply pending migrations before serving (postgres only)")
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	deps := httpx.Deps{
		Log:            log,
		Env:            cfg.Env,
		ServiceName:    cfg.ServiceName,
		Prom:           prom,
		JWT:            auth.NewManager(cfg.JWTSecret, cfg.AccessTTL()),
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	closeStorage, err := wireStorage(ctx, cfg, prom, log, &deps)
	if err != nil {
		return err
	}
	defer closeStorage()

	if err := db.EnsureAdminUser(ctx, deps.Users, log, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	closeRedis := wireRateStore(ctx, cfg, log, &deps)
	defer closeRedis()

	closeExtraction, err := wireExtraction(ctx, cfg, prom, log, &deps)
	if err != nil {
		return err
	}
	defer closeExtraction()

	if cfg.GCSBucket != "" {
		gcs, err := objectstore.NewGCS(ctx, cfg.GCSBucket, cfg.GCPCredentialsFile)
		if err != nil {
			return err
		}
		defer gcs.Close()
		deps.Uploader = gcs
	} else {
		log.Info("poster storage disabled: GCS_BUCKET not set")
	}

	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpx.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second, // poster extraction waits on OCR and the model
		IdleTimeout:       60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", prom.Handler())
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.Storage)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("metrics listening", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("server shutting down")

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		return errors.Join(apiSrv.Shutdown(sctx), metricsSrv.Shutdown(sctx))
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}

func wireStorage(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger, deps *httpx.Deps) (func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		store := memory.New()
		deps.Users = store.Users
		deps.Events = store.Events
		deps.Ledger = store.Registrations
		return func() {}, nil

	case config.StoragePostgres:
		pool, err := db.ConnectWithRetry(ctx, log, cfg.DBURL, cfg.DBMaxConns, 5)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if autoMigrate {
			if err := db.MigrateUp(cfg.DBURL); err != nil {
				pool.Close()
				return nil, err
			}
		}

		deps.Users = postgres.NewUsersRepo(pool, prom)
		deps.Events = postgres.NewEventsRepo(pool, prom)
		deps.Ledger = postgres.NewRegistrationsRepo(pool, prom)
		deps.Ping = pool.Ping
		return pool.Close, nil

	default:
		return nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}
}

// wireRateStore prefers redis so limits hold across instances. An unreachable
// redis falls back to per-process counting.
func wireRateStore(ctx context.Context, cfg config.Config, log *slog.Logger, deps *httpx.Deps) func() {
	if cfg.RedisAddr == "" {
		deps.RateStore = middlewares.NewMemoryWindowStore()
		return func() {}
	}

	rc := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rc.Ping(pctx); err != nil {
		log.Warn("redis unavailable, rate limiting per process", "addr", cfg.RedisAddr, "err", err)
		_ = rc.Close()
		deps.RateStore = middlewares.NewMemoryWindowStore()
		return func() {}
	}

	deps.RateStore = rc
	return func() { _ = rc.Close() }
}

func wireExtraction(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger, deps *httpx.Deps) (func(), error) {
	if cfg.GCPProject == "" {
		log.Info("poster extraction disabled: GCP_PROJECT not set")
		return func() {}, nil
	}

	engine, err := tesseract.New(cfg.OCRLanguages...)
	if err != nil {
		return nil, err
	}

	gen, err := gemini.New(ctx, gemini.Config{
		Project:         cfg.GCPProject,
		Location:        cfg.GCPLocation,
		Model:           cfg.GeminiModel,
		CredentialsFile: cfg.GCPCredentialsFile,
	})
	if err != nil {
		_ = engine.Close()
		return nil, err
	}

	client := extraction.NewClient(gen, extraction.ClientOptions{
		Timeout:       cfg.LLMTimeout,
		RatePerSecond: cfg.LLMRateLimit,
		Prom:          prom,
		Log:           log,
	})
	deps.Parser = extraction.NewPipeline(engine, client, cfg.OCRTimeout, prom, log)

	return func() { _ = engine.Close() }, nil
}
