package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/gradeview/internal/analytics"
	"github.com/p-n-ai/gradeview/internal/course"
	"github.com/p-n-ai/gradeview/internal/live"
	"github.com/p-n-ai/gradeview/internal/platform/cache"
	"github.com/p-n-ai/gradeview/internal/platform/config"
	"github.com/p-n-ai/gradeview/internal/platform/database"
	"github.com/p-n-ai/gradeview/internal/report"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	kv, err := cache.New(ctx, cache.Options{URL: cfg.Cache.URL, PoolSize: cfg.Cache.PoolSize})
	if err != nil {
		slog.Error("failed to connect to cache", "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	checks := map[string]func(context.Context) error{"cache": kv.HealthCheck}

	var events analytics.EventLogger = analytics.NopEventLogger{}
	if cfg.HasDatabase() {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pgEvents, err := db.EventLogger(ctx)
		if err != nil {
			slog.Error("failed to prepare usage events", "error", err)
			os.Exit(1)
		}
		events = pgEvents
		checks["database"] = db.HealthCheck
	} else {
		slog.Info("usage analytics disabled: GRADEVIEW_DATABASE_URL not set")
	}

	crs, err := course.Load(cfg.CoursePath)
	if err != nil {
		slog.Error("failed to load course", "path", cfg.CoursePath, "error", err)
		os.Exit(1)
	}

	svc, err := report.NewService(report.ServiceConfig{
		Store:       kv.Gradebook(),
		Course:      crs,
		Events:      events,
		EventKey:    []byte(cfg.Analytics.PseudonymKey),
		Concurrency: cfg.Report.Concurrency,
	})
	if err != nil {
		slog.Error("failed to create report service", "error", err)
		os.Exit(1)
	}

	hub := live.NewHub(svc.InvalidateOutline, cfg.Server.AllowedOrigins)
	go func() {
		if err := hub.Run(ctx, kv.Client); err != nil {
			slog.Error("gradebook update listener stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newMux(svc, hub, checks),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "course", crs.Name, "term", crs.Term)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
