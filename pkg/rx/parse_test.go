package rx

import "testing"

const sample = `City Clinic
Dr. Jane Doe, MD
Patient: John Smith
Age: 45 years
Date: 12/03/2024
Rx
Aspirin 500mg twice daily
after meals
Amoxicillin 250mg 3 times a day for 7 days
Omeprazole 20mg once daily before breakfast
12.5
Signature`

func TestPatientName(t *testing.T) {
	p := ExtractPatient("Patient: John Smith")
	if p[KeyName] != "John Smith" {
		t.Fatalf("expected John Smith got %q", p[KeyName])
	}
}

func TestPatientNameStopsAtNextLabel(t *testing.T) {
	p := ExtractPatient("Patient Name: John Smith Age: 45")
	if p[KeyName] != "John Smith" {
		t.Fatalf("expected John Smith got %q", p[KeyName])
	}
	if p[KeyAge] != "45" {
		t.Fatalf("expected age 45 got %q", p[KeyAge])
	}
}

func TestPatientNameKeepsSurnameBeforeDash(t *testing.T) {
	for _, in := range []string{"Patient: John Smith-Jones", "Patient: John Smith - 45 yrs"} {
		if got := ExtractPatient(in)[KeyName]; got != "John Smith" {
			t.Fatalf("%q: expected John Smith got %q", in, got)
		}
	}
}

func TestPatientNameOnlyCutsKnownLabels(t *testing.T) {
	p := ExtractPatient("Patient: Mary Ann Lee: allergic")
	if p[KeyName] != "Mary Ann Lee" {
		t.Fatalf("expected Mary Ann Lee got %q", p[KeyName])
	}
	if p := ExtractPatient("Patient Age: 45"); p[KeyName] != "" || p[KeyAge] != "45" {
		t.Fatalf("label-only value must not become a name: %v", p)
	}
}

func TestLabelGluedToWordIsNotALabel(t *testing.T) {
	p := ExtractPatient("PatientID: 77\nPatient: John Smith")
	if p[KeyName] != "John Smith" {
		t.Fatalf("expected John Smith got %q", p[KeyName])
	}
	if p := ExtractPatient("Patients: 3\nPackage: 10"); len(p) != 0 {
		t.Fatalf("expected no fields got %v", p)
	}
	if p := ExtractPatient("Dated 1/2/2024, Ages45"); len(p) != 0 {
		t.Fatalf("expected no fields got %v", p)
	}
}

func TestPatientAgeAndDate(t *testing.T) {
	p := ExtractPatient("Age: 45 years\nDate: 1-2-2024")
	if p[KeyAge] != "45" {
		t.Fatalf("expected 45 got %q", p[KeyAge])
	}
	if p[KeyDate] != "1-2-2024" {
		t.Fatalf("expected date 1-2-2024 got %q", p[KeyDate])
	}
}

func TestMissingFieldsAreAbsent(t *testing.T) {
	p := ExtractPatient("nothing useful here 123")
	if len(p) != 0 {
		t.Fatalf("expected no fields got %v", p)
	}
	d := ExtractDoctor("nothing useful here")
	if _, ok := d[KeyName]; ok {
		t.Fatalf("unexpected doctor name %v", d)
	}
}

func TestDoctorNameAndCredentials(t *testing.T) {
	d := ExtractDoctor("Dr. Jane Doe, MD\nPatient: John")
	if d[KeyName] != "Jane Doe" {
		t.Fatalf("expected Jane Doe got %q", d[KeyName])
	}
	if d[KeyCredentials] != "MD" {
		t.Fatalf("expected MD got %q", d[KeyCredentials])
	}
}

func TestDoctorNameBeforeDashSuffix(t *testing.T) {
	d := ExtractDoctor("Dr. Jane Doe - Cardiologist")
	if d[KeyName] != "Jane Doe" {
		t.Fatalf("expected Jane Doe got %q", d[KeyName])
	}
	if _, ok := d[KeyCredentials]; ok {
		t.Fatalf("unexpected credentials %v", d)
	}
	if d := ExtractDoctor("Dr.Jane Doe"); d[KeyName] != "Jane Doe" {
		t.Fatalf("expected Jane Doe got %q", d[KeyName])
	}
}

func TestDoctorIgnoresWordsStartingWithDr(t *testing.T) {
	d := ExtractDoctor("Drug: Aspirin\nAddress: Main st")
	if _, ok := d[KeyName]; ok {
		t.Fatalf("unexpected doctor name %q", d[KeyName])
	}
}

func TestCredentialsEqualToNameDropped(t *testing.T) {
	d := ExtractDoctor("Doctor: JD")
	if d[KeyName] != "JD" {
		t.Fatalf("expected JD got %q", d[KeyName])
	}
	if _, ok := d[KeyCredentials]; ok {
		t.Fatalf("credentials equal to name must be dropped: %v", d)
	}
}

func TestMedicationMention(t *testing.T) {
	got := ExtractMedications("Rx\nAspirin 500mg twice daily")
	if len(got) != 1 {
		t.Fatalf("expected 1 mention got %d: %+v", len(got), got)
	}
	m := got[0]
	if m.Name != "Aspirin" || m.Dosage != "500mg" || m.Frequency != "twice daily" {
		t.Fatalf("unexpected mention %+v", m)
	}
}

func TestContinuationLineAppendsInstructions(t *testing.T) {
	got := ExtractMedications("Rx\nAspirin 500mg twice daily\nafter meals\nwith water")
	if len(got) != 1 {
		t.Fatalf("expected 1 mention got %d: %+v", len(got), got)
	}
	if got[0].Instructions != "after meals with water" {
		t.Fatalf("unexpected instructions %q", got[0].Instructions)
	}
}

func TestLinesBeforeTriggerIgnored(t *testing.T) {
	got := ExtractMedications("Ibuprofen 400mg daily\nMetformin 500mg twice daily\nmedication list\nAspirin 75mg daily")
	if len(got) != 1 || got[0].Name != "Aspirin" {
		t.Fatalf("expected only Aspirin got %+v", got)
	}
	if got := ExtractMedications("Ibuprofen 400mg daily\nMetformin 500mg"); len(got) != 0 {
		t.Fatalf("no trigger means no mentions, got %+v", got)
	}
}

func TestSkipsShortAndNumericLines(t *testing.T) {
	got := ExtractMedications("R/\nab\n12.5, 3\n--\nParacetamol 500mg every 6 hours")
	if len(got) != 1 || got[0].Name != "Paracetamol" {
		t.Fatalf("unexpected mentions %+v", got)
	}
	if got[0].Frequency != "every 6 hours" {
		t.Fatalf("expected every 6 hours got %q", got[0].Frequency)
	}
}

func TestParseFullSample(t *testing.T) {
	p := Parse(sample)
	if p.Patient[KeyName] != "John Smith" || p.Patient[KeyAge] != "45" || p.Patient[KeyDate] != "12/03/2024" {
		t.Fatalf("unexpected patient %v", p.Patient)
	}
	if p.Doctor[KeyName] != "Jane Doe" {
		t.Fatalf("unexpected doctor %v", p.Doctor)
	}
	if len(p.Medications) != 3 {
		t.Fatalf("expected 3 mentions got %d: %+v", len(p.Medications), p.Medications)
	}
	asp := p.Medications[0]
	if asp.Instructions != "after meals" {
		t.Fatalf("expected continuation on aspirin got %+v", asp)
	}
	amox := p.Medications[1]
	if amox.Dosage != "250mg" || amox.Frequency != "3 times a day" || amox.Duration != "7 days" {
		t.Fatalf("unexpected amoxicillin %+v", amox)
	}
	ome := p.Medications[2]
	if ome.Frequency != "once daily" {
		t.Fatalf("unexpected omeprazole %+v", ome)
	}
	// the trailing one-word line is folded into the last mention
	want := "Omeprazole 20mg once daily before breakfast Signature"
	if ome.Instructions != want {
		t.Fatalf("expected instructions %q got %q", want, ome.Instructions)
	}
}

func TestParseEmpty(t *testing.T) {
	p := Parse("")
	if p.Medications == nil || len(p.Medications) != 0 {
		t.Fatalf("expected empty non-nil medications got %#v", p.Medications)
	}
}
