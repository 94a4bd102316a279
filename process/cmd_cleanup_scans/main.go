package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"medscan/models"
	"medscan/pkg/config"
	"medscan/process/sanitize"
)

func main() {
	age := flag.String("older-than", "30d", "delete scans older than this (e.g. 30d, 2w, 12h)")
	failedOnly := flag.Bool("failed-only", true, "only delete failed scans")
	dryRun := flag.Bool("dry-run", true, "only count what would be deleted")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.DBEnabled() {
		log.Fatal("DB_DSN not set")
	}
	cutoff, err := sanitize.Cutoff(time.Now(), *age)
	if err != nil {
		log.Fatal(err)
	}
	db, err := models.Open(cfg.DBDSN, false, nil)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	n, err := sanitize.PruneScans(context.Background(), db, cutoff, *failedOnly, *dryRun)
	if err != nil {
		log.Fatal(err)
	}
	if *dryRun {
		fmt.Printf("dry-run: %d scans before %s would be deleted\n", n, cutoff.Format(time.RFC3339))
		return
	}
	fmt.Printf("cleanup done: scans deleted=%d\n", n)
}
