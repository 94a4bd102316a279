// Package report prints a month-bounded summary of the scan history.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"gorm.io/gorm"

	"medscan/models"
)

// KindCount is the tally of one scan kind.
type KindCount struct {
	Kind   string
	Total  int
	Failed int
}

// Summary is the monthly tally plus the most frequent medication names.
type Summary struct {
	Month          string
	Start, End     time.Time
	Kinds          []KindCount
	TopMedications []NameCount
}

type NameCount struct {
	Name  string
	Count int
}

const topMedications = 10

// MonthRange parses YYYY-MM into the [start, end) UTC interval.
func MonthRange(month string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Summarize tallies scans. Medication names are counted once per scan
// mention, knowledge base matches only.
func Summarize(month string, start, end time.Time, scans []models.Scan) Summary {
	byKind := map[string]*KindCount{}
	names := map[string]int{}
	for _, s := range scans {
		kc := byKind[s.Kind]
		if kc == nil {
			kc = &KindCount{Kind: s.Kind}
			byKind[s.Kind] = kc
		}
		kc.Total++
		if s.Failed {
			kc.Failed++
		}
		for _, m := range s.Medications {
			if m.InKnowledgeBase {
				names[m.Name]++
			}
		}
	}
	out := Summary{Month: month, Start: start, End: end}
	for _, kc := range byKind {
		out.Kinds = append(out.Kinds, *kc)
	}
	sort.Slice(out.Kinds, func(i, j int) bool { return out.Kinds[i].Kind < out.Kinds[j].Kind })
	for n, c := range names {
		out.TopMedications = append(out.TopMedications, NameCount{Name: n, Count: c})
	}
	sort.Slice(out.TopMedications, func(i, j int) bool {
		a, b := out.TopMedications[i], out.TopMedications[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if len(out.TopMedications) > topMedications {
		out.TopMedications = out.TopMedications[:topMedications]
	}
	return out
}

// Write prints s. When scans is non-nil every row is listed too.
func Write(w io.Writer, who string, s Summary, scans []models.Scan) {
	fmt.Fprintf(w, "Report for %s month=%s (UTC):\n", who, s.Month)
	if len(s.Kinds) == 0 {
		fmt.Fprintln(w, "  no scans")
	}
	for _, k := range s.Kinds {
		fmt.Fprintf(w, "  %s: scans=%d failed=%d\n", k.Kind, k.Total, k.Failed)
	}
	if len(s.TopMedications) > 0 {
		fmt.Fprintln(w, "  top medications:")
		for _, n := range s.TopMedications {
			fmt.Fprintf(w, "    %s=%d\n", n.Name, n.Count)
		}
	}
	for _, r := range scans {
		fmt.Fprintf(w, "%d|%s|%s|%s|failed=%t|%s\n", r.ID, r.Ref, r.Kind, r.FileName, r.Failed, r.CreatedAt.Format(time.RFC3339))
	}
}

// Run loads the month's scans, optionally for one username, and prints the
// summary to w.
func Run(db *gorm.DB, w io.Writer, username, month string, list bool) error {
	start, end, err := MonthRange(month)
	if err != nil {
		return err
	}
	q := db.Preload("Medications").Where("created_at >= ? AND created_at < ?", start, end)
	who := "all users"
	if username != "" {
		var user models.User
		if err := db.Where("username = ?", username).First(&user).Error; err != nil {
			return fmt.Errorf("user not found: %w", err)
		}
		q = q.Where("user_id = ?", user.ID)
		who = "user=" + user.Username
	}
	var scans []models.Scan
	if err := q.Order("id").Find(&scans).Error; err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	s := Summarize(month, start, end, scans)
	if !list {
		scans = nil
	}
	Write(w, who, s, scans)
	return nil
}
