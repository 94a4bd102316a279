package rx

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// triggerTokens open the medication section when found anywhere in a line.
// They are matched case-sensitively; "medication" is matched on the
// lowercased line.
var triggerTokens = []string{"Rx", "R/", "℞", "Prescription"}

var (
	numericLineRE = regexp.MustCompile(`^[\d\s\p{P}]+$`)
	dosageRE      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?\s*(?:(?:mcg|mg|ml|iu|tablets?|capsules?|caps?|g)\b|%))`)
	frequencyRE   = regexp.MustCompile(`(?i)(\d+\s*(?:times|x)\s*(?:a|per)\s*day|twice\s+daily|once\s+daily|thrice\s+daily|daily|every\s*\d+\s*hours?|morning|night)`)
	durationRE    = regexp.MustCompile(`(?i)\b(?:for|duration|take)\b[ \t:]*(\d+\s*(?:days?|weeks?|months?))`)
)

// instructionWords mark a line as carrying intake instructions.
var instructionWords = []string{"after", "before", "with"}

const (
	minLineLen        = 3
	maxContinuationTk = 3
)

// IsTrigger reports whether line opens the medication section.
func IsTrigger(line string) bool {
	for _, t := range triggerTokens {
		if strings.Contains(line, t) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(line), "medication")
}

// ExtractMedications scans text line by line. Only lines after the first
// trigger are considered; trigger lines themselves are skipped. A short line
// without dosage or frequency is folded into the previous mention's
// instructions. There is exactly one line of lookback and no backtracking.
func ExtractMedications(text string) []Mention {
	var out []Mention
	inSection := false
	for _, line := range strings.Split(text, "\n") {
		if IsTrigger(line) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if utf8.RuneCountInString(trimmed) < minLineLen || numericLineRE.MatchString(trimmed) {
			continue
		}
		tokens := strings.Fields(trimmed)
		if len(tokens) == 0 {
			continue
		}

		m := Mention{Name: tokens[0]}
		if g := dosageRE.FindStringSubmatch(trimmed); g != nil {
			m.Dosage = g[1]
		}
		if g := frequencyRE.FindStringSubmatch(trimmed); g != nil {
			m.Frequency = g[1]
		}
		if g := durationRE.FindStringSubmatch(trimmed); g != nil {
			m.Duration = g[1]
		}
		if hasInstructionWord(trimmed) {
			m.Instructions = trimmed
		}

		if len(out) > 0 && len(tokens) < maxContinuationTk && m.Dosage == "" && m.Frequency == "" {
			prev := &out[len(out)-1]
			if prev.Instructions != "" {
				prev.Instructions += " " + trimmed
			} else {
				prev.Instructions = trimmed
			}
			continue
		}
		out = append(out, m)
	}
	return out
}

func hasInstructionWord(line string) bool {
	low := strings.ToLower(line)
	for _, w := range instructionWords {
		if strings.Contains(low, w) {
			return true
		}
	}
	return false
}
