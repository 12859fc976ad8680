// Package main is the entry point for the fleet dispatch API server.
// It wires configuration, storage, the audit pipeline and the HTTP router
// together. No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/fleet-dispatch/internal/audit"
	"github.com/pkordes/fleet-dispatch/internal/config"
	"github.com/pkordes/fleet-dispatch/internal/handler"
	"github.com/pkordes/fleet-dispatch/internal/middleware"
	"github.com/pkordes/fleet-dispatch/internal/repo"
	"github.com/pkordes/fleet-dispatch/internal/service"
	"github.com/pkordes/fleet-dispatch/migrations"
	"github.com/pkordes/fleet-dispatch/spec"
)

const (
	shutdownTimeout  = 15 * time.Second
	amqpDialAttempts = 5
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	if cfg.MigrateOnStart {
		if err := migrate(ctx, cfg.DatabaseURL, logger); err != nil {
			return err
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connection established")

	// --- Audit ------------------------------------------------------------
	var sink audit.Sink = audit.NewLogSink(logger)
	if cfg.AMQPURL != "" {
		amqpSink, err := audit.DialAMQPSink(ctx, cfg.AMQPURL, cfg.AuditExchange, amqpDialAttempts, logger)
		if err != nil {
			return err
		}
		defer amqpSink.Close()
		sink = audit.MultiSink{sink, amqpSink}
	}
	queue := audit.NewQueue(sink, cfg.AuditQueueSize, logger)

	// --- Services ---------------------------------------------------------
	trips := service.NewTripService(repo.NewTxRunner(pool), repo.NewUnitOfWork(pool), queue, logger)

	// --- Router -----------------------------------------------------------
	// Order matters: the request id and real ip must exist before the
	// logger reads them, and Recoverer must sit inside the logger so a
	// panic is still logged as a 500.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	handler.NewServer(trips, logger, spec.OpenAPI).
		Register(r, middleware.NewJWTAuth([]byte(cfg.JWTSecret)))

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		queue.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// No request can record an event any more; let Run drain the rest.
		queue.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// migrate applies the embedded goose migrations over a short-lived
// database/sql connection.
func migrate(ctx context.Context, dsn string, log *slog.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Up(ctx, db)
	if err != nil {
		return err
	}
	log.Info("migrations applied", "count", applied)
	return nil
}
