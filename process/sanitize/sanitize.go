// Package sanitize holds the destructive maintenance operations on the
// history store: truncating tables and pruning old scans.
package sanitize

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"medscan/models"
)

// DefaultTables are the application tables in dependency order.
var DefaultTables = []string{"scan_medications", "scans", "refresh_tokens", "users", "roles"}

var tableNameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidTables splits a comma separated list and keeps well-formed
// identifiers. Rejected names are returned second.
func ValidTables(list string) (ok, rejected []string) {
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !tableNameRE.MatchString(p) {
			rejected = append(rejected, p)
			continue
		}
		ok = append(ok, p)
	}
	return ok, rejected
}

// TruncateOptions control Truncate. Nothing is executed unless DryRun is
// false and Yes is true.
type TruncateOptions struct {
	Tables []string
	DryRun bool
	Yes    bool
	// Reseed re-inserts the default roles afterwards.
	Reseed bool
}

// Truncate empties the requested tables that exist in the public schema.
func Truncate(ctx context.Context, db *gorm.DB, opts TruncateOptions, out io.Writer) error {
	var existing []string
	for _, t := range opts.Tables {
		var cnt int64
		if err := db.WithContext(ctx).Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).Scan(&cnt).Error; err != nil {
			return fmt.Errorf("query pg_tables for %s: %w", t, err)
		}
		if cnt > 0 {
			existing = append(existing, t)
		} else {
			fmt.Fprintf(out, "info: table %s not found, skipping\n", t)
		}
	}
	if len(existing) == 0 {
		fmt.Fprintln(out, "no requested tables present in the database; nothing to do")
		return nil
	}
	fmt.Fprintln(out, "Tables considered for truncation:")
	for _, t := range existing {
		fmt.Fprintf(out, " - %s\n", t)
	}
	if opts.DryRun {
		fmt.Fprintln(out, "dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return nil
	}
	if !opts.Yes {
		fmt.Fprintln(out, "Destructive operation. Pass --yes to confirm execution. Aborting.")
		return nil
	}

	stmt := truncateStatement(existing)
	fmt.Fprintf(out, "Executing: %s\n", stmt)
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}
	if opts.Reseed {
		if err := models.SeedRoles(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("reseed failed: %w", err)
		}
	}
	return nil
}

// truncateStatement quotes already validated identifiers.
func truncateStatement(tables []string) string {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, fmt.Sprintf("%q", t))
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
}

// PruneScans deletes scans created before cutoff, only failed ones when
// failedOnly is set. With dryRun it only counts. Medications go with their
// scan through the cascade.
func PruneScans(ctx context.Context, db *gorm.DB, cutoff time.Time, failedOnly, dryRun bool) (int64, error) {
	q := db.WithContext(ctx).Model(&models.Scan{}).Where("created_at < ?", cutoff)
	if failedOnly {
		q = q.Where("failed = ?", true)
	}
	if dryRun {
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return 0, fmt.Errorf("count scans: %w", err)
		}
		return n, nil
	}
	res := q.Delete(&models.Scan{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete scans: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Cutoff turns an age like "30d", "12h" or "2w" into the time before now.
func Cutoff(now time.Time, age string) (time.Time, error) {
	age = strings.TrimSpace(age)
	if n := len(age); n > 1 && (age[n-1] == 'd' || age[n-1] == 'w') {
		var v int
		if _, err := fmt.Sscanf(age[:n-1], "%d", &v); err != nil || v < 0 {
			return time.Time{}, fmt.Errorf("invalid age %q", age)
		}
		days := v
		if age[n-1] == 'w' {
			days *= 7
		}
		return now.AddDate(0, 0, -days), nil
	}
	d, err := time.ParseDuration(age)
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("invalid age %q", age)
	}
	return now.Add(-d), nil
}
