package rx

import (
	"regexp"
	"strings"
)

// labelSep is what may follow a label word: a ':' or '-' with optional
// blanks, or at least one blank. A label glued to more letters ("PatientID")
// is not a label.
const labelSep = `(?:[ \t]*[:\-][ \t]*|[ \t]+)`

// Label-anchored patterns. Values stop at the end of the line so a label on
// the next line is never swallowed into the previous value.
var (
	patientNameRE = regexp.MustCompile(`(?i)\b(?:patient(?:[ \t]+name)?|name)` + labelSep + `([A-Za-z][A-Za-z .]*)`)
	ageRE         = regexp.MustCompile(`(?i)\bage` + labelSep + `(\d+)(?:[ \t]*(?:years?|yrs?))?`)
	dateRE        = regexp.MustCompile(`(?i)\bdate` + labelSep + `(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	doctorNameRE  = regexp.MustCompile(`(?i)\b(?:dr\.[ \t]*|(?:dr|doctor)` + labelSep + `)([A-Za-z][A-Za-z .]*)`)
	credentialsRE = regexp.MustCompile(`\b([A-Z][A-Z.]+(?:[ \t]*,[ \t]*[A-Z][A-Z.]+)*)(?:[^A-Za-z]|$)`)
)

// inlineLabels are label words that may follow a name on the same line.
var inlineLabels = map[string]bool{
	"age": true, "date": true, "dob": true, "sex": true, "gender": true,
	"dr": true, "doctor": true, "name": true, "patient": true, "id": true,
	"phone": true, "tel": true, "address": true, "weight": true,
}

// ExtractPatient pulls patient name, age and date. First match wins and
// nothing is validated.
func ExtractPatient(text string) Fields {
	out := Fields{}
	if v, _, ok := nameValue(patientNameRE, text); ok {
		out[KeyName] = v
	}
	if m := ageRE.FindStringSubmatch(text); m != nil {
		out[KeyAge] = m[1]
	}
	if m := dateRE.FindStringSubmatch(text); m != nil {
		out[KeyDate] = m[1]
	}
	return out
}

// ExtractDoctor pulls the doctor's name and a credentials token. Credentials
// are looked for on the rest of the doctor's line first, then anywhere, and
// dropped when equal to the name.
func ExtractDoctor(text string) Fields {
	out := Fields{}
	rest := ""
	if v, end, ok := nameValue(doctorNameRE, text); ok {
		out[KeyName] = v
		rest = text[end:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
	}
	cred := firstCredentials(rest)
	if cred == "" {
		cred = firstCredentials(text)
	}
	if cred != "" && cred != out[KeyName] {
		out[KeyCredentials] = cred
	}
	return out
}

// nameValue returns the trimmed first capture of re and the offset where it
// ends. When the capture runs into another known "Label:" on the same line
// the label word is cut off ("John Smith Age: 45" yields "John Smith").
func nameValue(re *regexp.Regexp, text string) (string, int, bool) {
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", 0, false
	}
	start, end := loc[2], loc[3]
	v := text[start:end]
	if end < len(text) && text[end] == ':' {
		trimmed := strings.TrimRight(v, " \t.")
		i := strings.LastIndexAny(trimmed, " \t")
		if inlineLabels[strings.ToLower(trimmed[i+1:])] {
			if i < 0 {
				i = 0
			}
			v = trimmed[:i]
			end = start + i
		}
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", 0, false
	}
	return v, end, true
}

func firstCredentials(s string) string {
	if s == "" {
		return ""
	}
	m := credentialsRE.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
