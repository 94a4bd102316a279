package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"medscan/models"
	"medscan/pkg/analysis"
	"medscan/pkg/config"
	"medscan/pkg/logging"
	"medscan/process/batch"
)

func main() {
	limit := flag.Int("limit", 0, "retry at most this many scans (0 = all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.DBEnabled() {
		log.Fatal("DB_DSN not set")
	}
	logger := logging.New(cfg.IsDev(), cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	db, err := models.Open(cfg.DBDSN, false, logger)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	ctx := context.Background()
	svc := analysis.FromConfig(cfg, nil, logger)
	if err := svc.LoadModels(ctx); err != nil {
		log.Fatalf("Error loading models - %v", err)
	}
	res, err := batch.RetryFailed(ctx, db, svc, *limit, logger.Named("retry"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("fixed=%d still_failed=%d missing=%d\n", res.Fixed, res.StillFailed, res.Missing)
}
