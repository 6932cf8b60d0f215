package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/legido/auth-backend/internal/api/middleware"
	"github.com/legido/auth-backend/internal/api/rest"
	"github.com/legido/auth-backend/internal/auth"
	"github.com/legido/auth-backend/internal/auth/google"
	"github.com/legido/auth-backend/internal/config"
	"github.com/legido/auth-backend/internal/mailer"
	"github.com/legido/auth-backend/internal/pkg/logger"
	"github.com/legido/auth-backend/internal/pkg/tracing"
	"github.com/legido/auth-backend/internal/repository"
	"github.com/legido/auth-backend/internal/service"
	"github.com/legido/auth-backend/migrations"
)

func main() {
	slogger := logger.StdLogger()
	slogger.Info("🚀 LeGiDo auth backend starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	slogger.Info("📋 Configuration loaded", "port", cfg.Port, "db", cfg.DatabaseDriver)

	tracingCleanup, err := tracing.Init("legido-auth-backend", cfg.TracingEndpoint, cfg.TracingSamplingRate)
	if err != nil {
		log.Fatalf("❌ Failed to initialize tracing: %v", err)
	}
	defer tracingCleanup()
	if cfg.TracingEndpoint != "" {
		slogger.Info("🔭 Tracing enabled", "endpoint", cfg.TracingEndpoint, "sampling_rate", cfg.TracingSamplingRate)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer store.Close()

	codec, err := auth.NewTokenCodec(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	if err != nil {
		log.Fatalf("❌ Failed to initialize token codec: %v", err)
	}
	totp := &auth.TOTPEngine{Issuer: cfg.TOTPIssuer}

	var mail mailer.Mailer = mailer.LogMailer{}
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	} else {
		slogger.Warn("⚠️  No SMTP host configured; reset links will be logged, not emailed")
	}

	var verifier service.IdentityVerifier
	if cfg.GoogleClientID != "" {
		v, err := google.NewVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			log.Fatalf("❌ Failed to initialize Google verifier: %v", err)
		}
		verifier = v
	} else {
		slogger.Warn("⚠️  No Google client id configured; federated login disabled")
	}

	authService := service.NewAuthService(store, codec, totp, mail, verifier, cfg.ResetURLBase)

	// HTTP router
	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.StructuredLog)
	router.Use(middleware.Recover)
	router.Use(middleware.SecureHeaders)

	healthz := rest.NewHealthzHandler(store)
	healthz.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	authHandler := rest.NewAuthHandler(authService, cfg.RefreshTokenTTL())
	authHandler.RegisterRoutes(apiRouter, middleware.RequireAuth(codec))

	// CORS: credentials must be allowed for the refresh token cookie.
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      c.Handler(router),
		ReadTimeout:  time.Duration(cfg.RequestTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slogger.Info("🌐 Server listening", "port", cfg.Port)
		slogger.Info(fmt.Sprintf("📡 API available at http://localhost:%d/api/v1", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slogger.Info("🛑 Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slogger.Warn("⚠️  Server forced to shutdown", "error", err)
	}

	slogger.Info("✅ Server exited gracefully")
}

// openStore connects to the configured database and applies the embedded
// schema migrations.
func openStore(cfg *config.Config) (repository.Store, error) {
	migrationSQL, err := migrations.FS.ReadFile("001_initial_schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	switch cfg.DatabaseDriver {
	case "postgres":
		repo, err := repository.NewPostgresRepository(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := repo.RunMigrations(string(migrationSQL)); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return repo, nil
	default:
		repo, err := repository.NewSQLiteRepository(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := repo.RunMigrations(string(migrationSQL)); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return repo, nil
	}
}
