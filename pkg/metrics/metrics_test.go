package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != 200 {
		t.Fatalf("scrape status %d", rr.Code)
	}
	return rr.Body.String()
}

func TestObserveCountsOutcomes(t *testing.T) {
	m := New(nil)
	m.Observe(KindPrescription, time.Now(), nil)
	m.Observe(KindPrescription, time.Now(), errors.New("x"))
	m.Observe(KindPill, time.Now(), nil)
	body := scrape(t, m)
	for _, want := range []string{
		`medscan_analyses_total{kind="prescription",outcome="error"} 1`,
		`medscan_analyses_total{kind="prescription",outcome="ok"} 1`,
		`medscan_analyses_total{kind="pill",outcome="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestBreakerAndReadyGauges(t *testing.T) {
	m := New(nil)
	m.SetBreakerState("half-open")
	m.SetReady(KindPill, true)
	m.SetReady(KindPrescription, false)
	body := scrape(t, m)
	for _, want := range []string{
		"medscan_classifier_breaker_state 2",
		`medscan_models_ready{kind="pill"} 1`,
		`medscan_models_ready{kind="prescription"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestOCRPassCounter(t *testing.T) {
	m := New(nil)
	m.OCRPass("primary")
	if body := scrape(t, m); !strings.Contains(body, `medscan_ocr_passes_total{pass="primary"} 1`) {
		t.Fatalf("metric missing from output:\n%s", body)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Observe(KindPill, time.Now(), nil)
	m.OCRPass("primary")
	m.SetReady(KindPill, true)
	m.SetBreakerState("open")
}
