package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"medscan/models"
	"medscan/pkg/config"
	"medscan/process/sanitize"
)

func main() {
	var (
		dryRun = flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
		yes    = flag.Bool("yes", false, "Confirm destructive action (required to actually truncate)")
		reseed = flag.Bool("reseed", false, "After truncation, reseed the default roles")
		tables = flag.String("tables", strings.Join(sanitize.DefaultTables, ","), "Comma-separated list of tables to truncate")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.DBEnabled() {
		log.Fatal("DB_DSN must be set to run db_sanitize")
	}
	ok, rejected := sanitize.ValidTables(*tables)
	for _, r := range rejected {
		log.Printf("warning: skipping invalid table name '%s'", r)
	}
	db, err := models.Open(cfg.DBDSN, false, nil)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	opts := sanitize.TruncateOptions{Tables: ok, DryRun: *dryRun, Yes: *yes, Reseed: *reseed}
	if err := sanitize.Truncate(context.Background(), db, opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
