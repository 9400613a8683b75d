package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/upay/backend/internal/api"
	"github.com/upay/backend/internal/auth"
	"github.com/upay/backend/internal/config"
	"github.com/upay/backend/internal/domain"
	"github.com/upay/backend/internal/fcm"
	"github.com/upay/backend/internal/metrics"
	"github.com/upay/backend/internal/middleware"
	"github.com/upay/backend/internal/repository"
	"github.com/upay/backend/internal/scheduler"
	"github.com/upay/backend/internal/trigger"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting upay backend",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("project", cfg.Firebase.ProjectID),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Firebase
	app, err := initFirebase(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("Failed to initialize Firebase app", zap.Error(err))
	}

	store, err := app.Firestore(ctx)
	if err != nil {
		logger.Fatal("Failed to connect to Firestore", zap.Error(err))
	}

	pusher, err := fcm.NewClient(ctx, app, logger)
	if err != nil {
		logger.Fatal("Failed to initialize messaging client", zap.Error(err))
	}

	verifier, err := auth.NewVerifier(ctx, app)
	if err != nil {
		if cfg.Auth.Required {
			logger.Fatal("Failed to initialize auth client", zap.Error(err))
		}
		logger.Warn("Auth client unavailable - callables run without caller identity", zap.Error(err))
	}

	metrics.Init()

	// Initialize dependencies
	repo := repository.NewFirestoreRepository(store, repository.Collections{
		Messages:   cfg.Firestore.MessagesCollection,
		Identity:   cfg.Firestore.IdentityCollection,
		Dispatches: cfg.Firestore.DispatchesCollection,
	}, cfg.Dispatch.MarkerTTL)

	// Initialize services
	notificationService := domain.NewNotificationService(repo, repo, pusher, logger)
	messageService := domain.NewMessageService(repo)
	identityService := domain.NewIdentityService(repo)
	cleanupService := domain.NewCleanupService(repo, cfg.Retention(), cfg.Cleanup.BatchSize, logger)

	var workers []worker

	if cfg.Dispatch.ListenerEnabled {
		listener := trigger.NewListener(store, notificationService, trigger.Options{
			Collection:  cfg.Firestore.MessagesCollection,
			Concurrency: cfg.Dispatch.Concurrency,
			CatchUp:     cfg.Dispatch.CatchUp,
			Timeout:     cfg.Dispatch.Timeout,
		}, logger)
		workers = append(workers, worker{name: "message listener", run: listener.Run})
	}

	if cfg.Cleanup.Enabled {
		daily := scheduler.NewDaily("cleanup", cfg.Cleanup.Hour, 0, time.UTC, func(ctx context.Context) error {
			_, err := cleanupService.Run(ctx)
			return err
		}, logger)
		workers = append(workers, worker{name: "cleanup scheduler", run: daily.Run})
	}

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)

	// Initialize handlers
	callableHandler := api.NewCallableHandler(messageService, identityService, logger)
	taskHandler := api.NewTaskHandler(cleanupService, logger)
	healthHandler := api.NewHealthHandler(repo.Ping, logger)

	opts := api.RouterOptions{
		AuthRequired:   cfg.Auth.Required,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		ExposeMetrics:  true,
	}
	if verifier != nil {
		opts.Verifier = verifier
	}

	// Initialize router
	router := api.NewRouter(callableHandler, taskHandler, healthHandler, opts, logger)
	r := router.Setup()

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	workers = append(workers, worker{name: "http server", run: func(context.Context) error {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}})

	// A failing worker cancels runCtx so the whole process stops and the
	// platform restarts it instead of serving without a listener.
	g, runCtx := startWorkers(ctx, logger, workers...)
	limiter.StartSweeper(runCtx, 5*time.Minute)

	<-runCtx.Done()

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	// In-flight dispatches and cleanup runs still use the store.
	exitCode := 0
	if err := waitWorkers(shutdownCtx, g); err != nil {
		logger.Error("Workers did not stop cleanly", zap.Error(err))
		exitCode = 1
	}

	if err := store.Close(); err != nil {
		logger.Error("Firestore close error", zap.Error(err))
	}

	logger.Info("Server stopped")
	if exitCode != 0 {
		_ = logger.Sync()
		os.Exit(exitCode)
	}
}

// worker is a long-running component. run returns nil once ctx is cancelled
// and an error when the component can no longer work.
type worker struct {
	name string
	run  func(ctx context.Context) error
}

// startWorkers runs every worker in one group. The returned context is
// cancelled when ctx ends or the first worker fails.
func startWorkers(ctx context.Context, logger *zap.Logger, workers ...worker) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			if err := w.run(gctx); err != nil {
				logger.Error("Worker stopped", zap.String("worker", w.name), zap.Error(err))
				return fmt.Errorf("%s: %w", w.name, err)
			}
			return nil
		})
	}
	return g, gctx
}

// waitWorkers waits for the group to finish or ctx to expire, whichever
// comes first.
func waitWorkers(ctx context.Context, g *errgroup.Group) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("waiting for workers: %w", ctx.Err())
	}
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Log.Level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

func initFirebase(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}
