package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qamod/internal/config"
	"qamod/internal/db"
	"qamod/internal/jobs"
	"qamod/internal/metrics"
	"qamod/internal/middleware"
	"qamod/internal/moderation"
	"qamod/internal/notify"
	"qamod/internal/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	setupLogging(cfg)

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL, db.Options{
		LockTimeout: cfg.LockTimeout,
		MaxRetries:  cfg.TxMaxRetries,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("migrations completed successfully")

	// Apply the moderation policy file, if any
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatalf("Failed to load policy: %v", err)
	}
	if policy != nil {
		if err := database.ApplyPolicy(ctx, policy.ClosurePatch(), policy.Reasons(), policy.Thresholds()); err != nil {
			log.Fatalf("Failed to apply policy: %v", err)
		}
		slog.Info("moderation policy applied", "file", cfg.PolicyFile,
			"close_reasons", len(policy.CloseReasons), "review_thresholds", len(policy.ReviewThreshold))
	}

	// Observers of committed resolutions
	recorder := metrics.Init(database)
	dispatcher := notify.NewDispatcher(nil, 256, slog.Default())
	dispatcher.Start()
	defer dispatcher.Stop()

	svc := moderation.NewService(database, notify.Fanout{recorder, dispatcher}, slog.Default(), moderation.Config{
		DailyReviewLimit: cfg.DailyReviewLimit,
	})

	// Background reputation audit
	auditor := jobs.NewReputationAuditor(database, time.Hour, recorder.RecordDrift)
	go auditor.Start(ctx)

	// Authentication
	var verifier middleware.TokenVerifier
	if cfg.OIDCIssuer != "" {
		v, err := middleware.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			log.Fatalf("Failed to initialize OIDC: %v", err)
		}
		verifier = v
	} else if cfg.IsDev() {
		slog.Warn("OIDC_ISSUER not set, trusting " + middleware.DevUserHeader + " header (development only)")
	} else {
		log.Fatal("OIDC_ISSUER is required outside development")
	}
	auth := middleware.NewAuthMiddleware(database, verifier, cfg)

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	srv.RegisterRoutes(server.Deps{
		Service: svc,
		Auth:    auth,
		Config:  database,
		Health:  database,
	})

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	cancel()
	if err := srv.Shutdown(); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	slog.Info("server exited")
}

// setupLogging installs the process-wide slog handler: text in development,
// JSON everywhere else.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
