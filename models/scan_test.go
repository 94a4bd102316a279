package models

import (
	"strings"
	"testing"

	"medscan/pkg/report"
	"medscan/pkg/rx"
)

func TestNewPrescriptionScan(t *testing.T) {
	r := &report.Prescription{
		RawText: "Rx\nAspirin 500mg",
		OCRPass: "primary",
		Medications: []report.MedicationEntry{
			{Mention: rx.Mention{Name: "Aspirin", Dosage: "500mg"}, Information: "Pain reliever"},
			{Mention: rx.Mention{Name: "Zzz"}},
		},
	}
	s := NewPrescriptionScan("rx.jpg", "image/jpeg", r)
	if s.Kind != KindPrescription || len(s.Ref) != 36 || s.Failed {
		t.Fatalf("unexpected scan %+v", s)
	}
	if len(s.Medications) != 2 || !s.Medications[0].InKnowledgeBase || s.Medications[1].InKnowledgeBase {
		t.Fatalf("unexpected medications %+v", s.Medications)
	}
	if !strings.Contains(s.Report, "--- Raw Extracted Text ---") {
		t.Fatalf("report not rendered: %q", s.Report)
	}
}

func TestNewPillScanFailure(t *testing.T) {
	s := NewPillScan("p.png", "image/png", &report.Pill{Error: strings.Repeat("x", 300)})
	if !s.Failed || len(s.FailedReason) != 255 {
		t.Fatalf("expected truncated failure reason, got %d chars", len(s.FailedReason))
	}
	if s.Kind != KindPill || len(s.Medications) != 0 {
		t.Fatalf("unexpected scan %+v", s)
	}
}
