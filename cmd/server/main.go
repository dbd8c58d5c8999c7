package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/ledgerchat/internal/api"
	"github.com/eldtechnologies/ledgerchat/internal/config"
	"github.com/eldtechnologies/ledgerchat/internal/handlers"
	"github.com/eldtechnologies/ledgerchat/internal/program"
	"github.com/eldtechnologies/ledgerchat/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(zerolog.DebugLevel).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Redis backs the nonce cache whenever it is configured, and the ledger
	// when selected.
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	ledger, err := openLedger(ctx, cfg, redisStore, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Driver).Msg("ledger unavailable")
	}
	if cfg.Driver != config.DriverRedis {
		defer ledger.Close()
	}

	var nonces store.NonceCache = store.NewMemoryNonces()
	if redisStore != nil {
		nonces = redisStore
	}

	processor := program.NewProcessor(ledger, program.Config{
		ProgramID:                 cfg.ProgramID,
		MaxMessages:               cfg.MaxMessages,
		StrictContactRegistration: cfg.StrictContactRegistration,
	}, logger)

	h := handlers.NewHandler(processor, ledger, cfg.Driver, redisStore, logger)
	router := api.NewRouter(logger, h, nonces)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("driver", cfg.Driver).
			Str("program_id", cfg.ProgramID.String()).
			Int("max_messages", cfg.MaxMessages).
			Msg("starting ledgerchat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

// openLedger connects the configured ledger driver.
func openLedger(ctx context.Context, cfg *config.Config, redisStore *store.RedisStore, logger zerolog.Logger) (store.Ledger, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory ledger, state is lost on exit")
		return store.NewMemoryStore(), nil

	case config.DriverSQLite:
		s, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened SQLite ledger")
		return s, nil

	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to PostgreSQL")
		return s, nil

	case config.DriverRedis:
		if redisStore == nil {
			return nil, fmt.Errorf("REDIS_URL is required for the redis driver")
		}
		return redisStore, nil
	}
	return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
}
