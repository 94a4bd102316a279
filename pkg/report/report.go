// Package report holds analysis results and renders them as the plain-text
// report shown to operators.
package report

import (
	"fmt"
	"io"
	"strings"

	"medscan/pkg/meds"
	"medscan/pkg/pill"
	"medscan/pkg/rx"
)

// Disclaimer closes every prescription report.
const Disclaimer = "DISCLAIMER: This analysis is for informational purposes only. " +
	"Always consult with a healthcare professional for accurate interpretation of prescriptions."

// PillDisclaimer closes every pill report.
const PillDisclaimer = "DISCLAIMER: This identification is not medically validated. " +
	"Always confirm a medication with a pharmacist or healthcare professional."

// Generic failure prefixes used at the presentation boundary.
const (
	PrescriptionErrorPrefix = "Error analyzing prescription: "
	PillErrorPrefix         = "Error identifying medication: "
)

// MedicationEntry is a detected mention plus the knowledge base purpose when
// the name could be looked up.
type MedicationEntry struct {
	rx.Mention
	Information string `json:"information,omitempty"`
}

// Prescription is the outcome of one prescription analysis. Error is set when
// the analysis failed; fields produced before the failure are kept.
type Prescription struct {
	RawText     string            `json:"raw_text"`
	OCRPass     string            `json:"ocr_pass,omitempty"`
	Patient     rx.Fields         `json:"patient"`
	Doctor      rx.Fields         `json:"doctor"`
	Medications []MedicationEntry `json:"medications"`
	Error       string            `json:"error,omitempty"`
}

// Pill is the outcome of one pill identification.
type Pill struct {
	pill.Identification
	Records []meds.Record `json:"records"`
	Error   string        `json:"error,omitempty"`
}

// WritePrescription renders r the way the results pane lays it out.
func WritePrescription(w io.Writer, r *Prescription) error {
	b := &strings.Builder{}
	if r.Error != "" && r.RawText == "" {
		fmt.Fprintf(b, "%s%s\n", PrescriptionErrorPrefix, r.Error)
		_, err := io.WriteString(w, b.String())
		return err
	}
	b.WriteString("--- Raw Extracted Text ---\n")
	b.WriteString(r.RawText + "\n\n")
	if r.Error != "" {
		fmt.Fprintf(b, "%s%s\n", PrescriptionErrorPrefix, r.Error)
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("--- Structured Analysis ---\n\n")
	writeFields(b, "Patient Information:", r.Patient, rx.PatientKeys)
	writeFields(b, "Doctor Information:", r.Doctor, rx.DoctorKeys)

	if len(r.Medications) == 0 {
		b.WriteString("No medications clearly identified in the prescription.\n\n")
	} else {
		b.WriteString("Medications:\n")
		for _, m := range r.Medications {
			fmt.Fprintf(b, "- Name: %s\n", m.Name)
			optional(b, "Dosage", m.Dosage)
			optional(b, "Frequency", m.Frequency)
			optional(b, "Duration", m.Duration)
			optional(b, "Instructions", m.Instructions)
			optional(b, "Information", m.Information)
			b.WriteString("\n")
		}
	}
	b.WriteString(Disclaimer + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WritePill renders a pill identification.
func WritePill(w io.Writer, r *Pill) error {
	b := &strings.Builder{}
	if r.Error != "" {
		fmt.Fprintf(b, "%s%s\n", PillErrorPrefix, r.Error)
		_, err := io.WriteString(w, b.String())
		return err
	}
	b.WriteString("Possible Medications Found:\n\n")
	for i, p := range r.Predictions {
		fmt.Fprintf(b, "%d. %s: %.2f%%\n", i+1, pill.DisplayLabel(p.Label), p.Score*100)
	}
	b.WriteString("\n")

	if len(r.Records) == 0 {
		b.WriteString("No matching medication found in the knowledge base.\n")
		if !r.LooksLikeMedication {
			b.WriteString("The image does not appear to show a pill, tablet or capsule.\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Matching Medications:\n\n")
		for _, rec := range r.Records {
			fmt.Fprintf(b, "%s\n", rec.Name)
			optional(b, "Purpose", rec.Purpose)
			optional(b, "Common Dosage", rec.Dosage)
			optional(b, "Side Effects", rec.SideEffects)
			optional(b, "Warnings", rec.Warnings)
			optional(b, "Interactions", rec.Interactions)
			b.WriteString("\n")
		}
	}
	b.WriteString(PillDisclaimer + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// PrescriptionText is WritePrescription into a string.
func PrescriptionText(r *Prescription) string {
	var b strings.Builder
	_ = WritePrescription(&b, r)
	return b.String()
}

// PillText is WritePill into a string.
func PillText(r *Pill) string {
	var b strings.Builder
	_ = WritePill(&b, r)
	return b.String()
}

func writeFields(b *strings.Builder, title string, f rx.Fields, order []string) {
	if len(f) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, k := range order {
		if v, ok := f[k]; ok {
			fmt.Fprintf(b, "- %s: %s\n", k, v)
		}
	}
	b.WriteString("\n")
}

func optional(b *strings.Builder, label, v string) {
	if v != "" {
		fmt.Fprintf(b, "  %s: %s\n", label, v)
	}
}
