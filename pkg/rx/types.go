package rx

// Field keys used in Fields maps.
const (
	KeyName        = "name"
	KeyAge         = "age"
	KeyDate        = "date"
	KeyCredentials = "credentials"
)

// PatientKeys and DoctorKeys give the display order of each field map.
var (
	PatientKeys = []string{KeyName, KeyAge, KeyDate}
	DoctorKeys  = []string{KeyName, KeyCredentials}
)

// Fields holds loosely extracted label values. A missing key means the
// value was not found in the text.
type Fields map[string]string

// Get returns the value for key or "".
func (f Fields) Get(key string) string {
	if f == nil {
		return ""
	}
	return f[key]
}

// Mention is one medication entry detected in prescription text.
type Mention struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Prescription is the structured result of parsing OCR text.
type Prescription struct {
	Patient     Fields    `json:"patient"`
	Doctor      Fields    `json:"doctor"`
	Medications []Mention `json:"medications"`
}
