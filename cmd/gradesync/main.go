// Command gradesync imports the course spreadsheet into the gradebook cache
// and notifies running servers. It is meant to run from cron.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/p-n-ai/gradeview/internal/gradebook"
	"github.com/p-n-ai/gradeview/internal/platform/cache"
	"github.com/p-n-ai/gradeview/internal/platform/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:]); err != nil {
		slog.Error("sync failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string) error {
	path := cfg.Sync.Workbook
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no workbook: pass a path or set GRADEVIEW_SYNC_WORKBOOK")
	}

	snap, err := gradebook.ImportWorkbook(path, layoutFrom(cfg.Sync))
	if err != nil {
		return err
	}
	slog.Info("workbook imported",
		"path", path,
		"students", len(snap.Students),
		"outline_rows", len(snap.Outline),
		"bins", len(snap.Bins),
	)

	kv, err := cache.New(ctx, cache.Options{URL: cfg.Cache.URL, PoolSize: cfg.Cache.PoolSize})
	if err != nil {
		return err
	}
	defer kv.Close()

	if err := kv.Gradebook().Save(ctx, snap); err != nil {
		return err
	}
	slog.Info("gradebook saved", "synced_at", snap.SyncedAt)
	return nil
}

func layoutFrom(s config.SyncConfig) gradebook.Layout {
	layout := gradebook.DefaultLayout()
	layout.Sheet = s.Sheet
	layout.BinsSheet = s.BinsSheet
	layout.BinsStartRow = s.BinsStartRow
	layout.BinsEndRow = s.BinsEndRow
	return layout
}
