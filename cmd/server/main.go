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

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"clinichistory/internal/config"
	"clinichistory/internal/database"
	"clinichistory/internal/demo"
	"clinichistory/internal/handlers"
	"clinichistory/internal/logging"
	"clinichistory/internal/recovery"
	"clinichistory/internal/repository"
	"clinichistory/internal/security"
	"clinichistory/internal/service"
	"clinichistory/internal/session"
)

const (
	sessionCleanupInterval = time.Hour
	loginAttemptsPerMinute = 10
	shutdownTimeout        = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Environment, cfg.LogLevel)

	if !cfg.IsProduction() {
		figure.NewFigure("Historias", "", true).Print()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	log.Info().Str("type", cfg.DatabaseType).Msg("Database connection established")

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Session.Store == "redis" || cfg.Recovery.Store == "redis" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
		log.Info().Str("addr", opts.Addr).Msg("Redis connection established")
	}

	userRepo := repository.NewUserRepository(db)
	recordRepo := repository.NewRecordRepository(db)

	var sessions session.Store = repository.NewSessionRepository(db)
	if cfg.Session.Store == "redis" {
		sessions = session.NewRedisStore(redisClient, "clinic")
	}

	var codes recovery.Store = recovery.NewMemoryStore()
	if cfg.Recovery.Store == "redis" {
		codes = recovery.NewRedisStore(redisClient, "clinic")
	}

	sender, err := newCodeSender(ctx, cfg)
	if err != nil {
		return err
	}

	sandbox := demo.NewSandbox(cfg.Demo.Emails, cfg.Demo.MaxAge)
	authService := service.NewAuthService(userRepo, sessions, sandbox, cfg.Session.Duration, cfg.Session.RememberDuration)
	recoveryService := service.NewRecoveryService(userRepo, codes, sender, sandbox, cfg.Recovery.CodeTTL)

	signer := security.NewCookieSigner(cfg.Session.Secret)
	csrf := security.NewCSRFGenerator(cfg.Session.Secret)
	limiter := security.NewRateLimiter(loginAttemptsPerMinute, time.Minute)

	middleware := handlers.NewMiddleware(authService, signer, csrf, recordRepo, sandbox, limiter)
	router := handlers.NewRouter(
		handlers.RouterConfig{
			StaticFilesPath: cfg.StaticFilesPath,
			AllowedOrigins:  cfg.AllowedOrigins,
			RequestTimeout:  cfg.RequestTimeout,
		},
		middleware,
		handlers.NewAuthHandler(authService, recoveryService, signer, csrf, cfg.IsProduction()),
		handlers.NewRecordsHandler(),
	)

	go sandbox.Run(ctx, cfg.Demo.SweepInterval)
	go limiter.Run(ctx, time.Minute)
	go cleanupExpiredSessions(ctx, authService)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("env", cfg.Environment).
			Strs("demo_emails", cfg.Demo.Emails).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newCodeSender picks how recovery codes reach the user
func newCodeSender(ctx context.Context, cfg *config.Config) (service.CodeSender, error) {
	ttlMinutes := int(cfg.Recovery.CodeTTL / time.Minute)

	switch cfg.Recovery.Delivery {
	case "ses":
		sender, err := service.NewEmailService(ctx, cfg.SES.Region, cfg.SES.FromEmail, cfg.SES.FromName, ttlMinutes)
		if err != nil {
			return nil, fmt.Errorf("failed to configure SES: %w", err)
		}
		return sender, nil
	case "smtp":
		return service.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, ttlMinutes), nil
	default:
		log.Warn().Msg("Recovery codes are only written to the log")
		return service.LogSender{}, nil
	}
}

// cleanupExpiredSessions periodically removes expired sessions from the store
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := authService.CleanupExpiredSessions(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Failed to clean up expired sessions")
				continue
			}
			if removed > 0 {
				log.Info().Int64("removed", removed).Msg("Cleaned up expired sessions")
			}
		}
	}
}
