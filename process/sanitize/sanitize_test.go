package sanitize

import (
	"testing"
	"time"
)

func TestValidTables(t *testing.T) {
	ok, rejected := ValidTables("scans, users;drop ,,_x1")
	if len(ok) != 2 || ok[0] != "scans" || ok[1] != "_x1" {
		t.Fatalf("unexpected ok %v", ok)
	}
	if len(rejected) != 1 || rejected[0] != "users;drop" {
		t.Fatalf("unexpected rejected %v", rejected)
	}
}

func TestTruncateStatementQuotes(t *testing.T) {
	got := truncateStatement([]string{"scans", "users"})
	want := `TRUNCATE TABLE "scans", "users" RESTART IDENTITY CASCADE`
	if got != want {
		t.Fatalf("expected %s got %s", want, got)
	}
}

func TestCutoff(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	cases := map[string]time.Time{
		"30d": time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC),
		"2w":  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		"12h": time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := Cutoff(now, in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%s: expected %v got %v", in, want, got)
		}
	}
	for _, bad := range []string{"", "xd", "-1d", "soon"} {
		if _, err := Cutoff(now, bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
