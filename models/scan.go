package models

import (
	"time"

	"github.com/google/uuid"

	"medscan/pkg/report"
)

// Scan kinds.
const (
	KindPrescription = "prescription"
	KindPill         = "pill"
)

// Scan is the stored history of one analysis. Nothing reads it back into the
// analysis path; it only records what was produced.
type Scan struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Ref         string `gorm:"size:36;uniqueIndex;not null"`
	Kind        string `gorm:"size:16;index;not null"`
	FileName    string `gorm:"size:255;not null"`
	ContentType string `gorm:"size:128"`
	StorePath   string `gorm:"column:store_path;size:512"` // kept upload, empty when removed
	OCRPass     string `gorm:"size:16"`
	RawText     string `gorm:"type:text"`
	Report      string `gorm:"type:text"`
	// Failed scans are kept so operators can review them.
	Failed       bool             `gorm:"default:false;index"`
	FailedReason string           `gorm:"size:255"`
	UserID       *uint            `gorm:"index"`
	Medications  []ScanMedication `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// ScanMedication is one detected mention or knowledge base match of a scan.
type ScanMedication struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	ScanID       uint   `gorm:"index;not null"`
	Position     int    `gorm:"not null"`
	Name         string `gorm:"size:255;not null"`
	Dosage       string `gorm:"size:64"`
	Frequency    string `gorm:"size:64"`
	Duration     string `gorm:"size:64"`
	Instructions string `gorm:"size:512"`
	// InKnowledgeBase is true when the name resolved to a known medication.
	InKnowledgeBase bool `gorm:"default:false"`
}

// NewPrescriptionScan builds an unsaved Scan from a prescription report.
func NewPrescriptionScan(fileName, contentType string, r *report.Prescription) *Scan {
	s := &Scan{
		Ref:         uuid.NewString(),
		Kind:        KindPrescription,
		FileName:    fileName,
		ContentType: contentType,
		OCRPass:     r.OCRPass,
		RawText:     r.RawText,
		Report:      report.PrescriptionText(r),
	}
	if r.Error != "" {
		s.Failed, s.FailedReason = true, truncate(r.Error, 255)
	}
	for i, m := range r.Medications {
		s.Medications = append(s.Medications, ScanMedication{
			Position:        i,
			Name:            truncate(m.Name, 255),
			Dosage:          truncate(m.Dosage, 64),
			Frequency:       truncate(m.Frequency, 64),
			Duration:        truncate(m.Duration, 64),
			Instructions:    truncate(m.Instructions, 512),
			InKnowledgeBase: m.Information != "",
		})
	}
	return s
}

// NewPillScan builds an unsaved Scan from a pill report. Each knowledge base
// match becomes one ScanMedication.
func NewPillScan(fileName, contentType string, r *report.Pill) *Scan {
	s := &Scan{
		Ref:         uuid.NewString(),
		Kind:        KindPill,
		FileName:    fileName,
		ContentType: contentType,
		Report:      report.PillText(r),
	}
	if r.Error != "" {
		s.Failed, s.FailedReason = true, truncate(r.Error, 255)
	}
	for i, rec := range r.Records {
		s.Medications = append(s.Medications, ScanMedication{
			Position:        i,
			Name:            rec.Name,
			Dosage:          truncate(rec.Dosage, 64),
			InKnowledgeBase: true,
		})
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
