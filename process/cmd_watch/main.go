// Command cmd_watch analyzes a directory of prescription images, optionally
// watching it for new files, and writes a report next to each processed image.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"medscan/models"
	"medscan/pkg/analysis"
	"medscan/pkg/config"
	"medscan/pkg/logging"
	"medscan/process/batch"
)

func main() {
	dirFlag := flag.String("dir", filepath.Join("public", "rx"), "directory to scan for prescription images")
	processedFlag := flag.String("processed", "", "where analyzed images and reports go (default <dir>/processed)")
	dryRun := flag.Bool("dry-run", false, "list candidate files without analyzing or touching the DB")
	watch := flag.Bool("watch", false, "keep watching the directory for new files")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	maxBytes := flag.Int64("max-bytes", 1_000_000, "shrink processed images above this size (0 keeps them)")
	verbose := flag.Bool("verbose", false, "development logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log := logging.New(cfg.IsDev() || *verbose, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := batch.Options{
		Dir:          *dirFlag,
		ProcessedDir: *processedFlag,
		Workers:      *workers,
		MaxBytes:     *maxBytes,
		DryRun:       *dryRun,
		Logger:       log.Named("batch"),
	}

	svc := analysis.FromConfig(cfg, nil, log)
	if !*dryRun {
		if err := svc.LoadModels(ctx); err != nil {
			log.Fatal("Error loading models", zap.Error(err))
		}
		if cfg.DBEnabled() {
			db, err := models.Open(cfg.DBDSN, cfg.DBAutoMigrate, log)
			if err != nil {
				log.Fatal("db", zap.Error(err))
			}
			opts.DB = db
		}
	}

	p := batch.New(svc, opts)
	st := p.Scan(ctx)
	log.Info("scan done", zap.Int64("processed", st.Processed), zap.Int64("failed", st.Failed))

	if *watch {
		if err := p.Watch(ctx); err != nil {
			log.Fatal("watch failed", zap.Error(err))
		}
		st = p.Stats()
		log.Info("watch stopped", zap.Int64("processed", st.Processed), zap.Int64("failed", st.Failed))
	}
}
