// Package rx extracts loosely structured prescription fields from OCR text
// using label-anchored regular expressions and a line scanner. Extraction
// never fails: anything that does not match is simply left out.
package rx

// Parse runs every extractor over text.
func Parse(text string) Prescription {
	meds := ExtractMedications(text)
	if meds == nil {
		meds = []Mention{}
	}
	return Prescription{
		Patient:     ExtractPatient(text),
		Doctor:      ExtractDoctor(text),
		Medications: meds,
	}
}
