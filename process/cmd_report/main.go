package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"medscan/models"
	"medscan/pkg/config"
	"medscan/process/report"
)

func main() {
	username := flag.String("username", "", "only count scans of this operator (default all)")
	month := flag.String("month", time.Now().UTC().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching scans")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.DBEnabled() {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}
	db, err := models.Open(cfg.DBDSN, false, nil)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err := report.Run(db, os.Stdout, *username, *month, *list); err != nil {
		log.Fatal(err)
	}
}
