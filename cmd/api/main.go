// Package main is the entry point for the Placetrack API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zekeapp/placetrack/internal/cache"
	"github.com/zekeapp/placetrack/internal/config"
	"github.com/zekeapp/placetrack/internal/handler"
	"github.com/zekeapp/placetrack/internal/middleware"
	"github.com/zekeapp/placetrack/internal/repo"
	"github.com/zekeapp/placetrack/internal/service"
)

// maxIngestBody caps POST bodies. A day of fixes at one per second is well
// under this.
const maxIngestBody = 4 << 20 // 4 MiB

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately — the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic. The database often
	// comes up alongside the server (compose, k8s), so ping with backoff
	// instead of failing on the first refused connection.
	err = retry.Do(
		func() error { return pool.Ping(context.Background()) },
		retry.Attempts(10),
		retry.Delay(500*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("database not ready", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// --- Repos, cache, services -------------------------------------------
	places := repo.NewPlaceRepo(pool)
	visits := repo.NewVisitRepo(pool)
	fixes := repo.NewFixRepo(pool)

	currentPlace := cache.NewCurrentPlace(cache.DefaultTTL)

	home := service.HomeLocation{
		Latitude:  cfg.HomeLatitude,
		Longitude: cfg.HomeLongitude,
		Set:       cfg.HomeSet,
	}
	visitSvc := service.NewVisitService(places, visits, fixes, currentPlace, nil, logger, home)
	routineSvc := service.NewRoutineService(places, visits)
	placeSvc := service.NewPlaceService(places, visits, fixes, currentPlace, routineSvc)
	discoverySvc := service.NewDiscoveryService(places, fixes, logger)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured JSON log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxIngestBody))

	srv := handler.NewServer(placeSvc, visitSvc, discoverySvc, routineSvc, cfg.IngestToken, logger)
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
