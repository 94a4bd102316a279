package pill

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// medicationTerms flag a label as medication-looking.
var medicationTerms = []string{"pill", "capsule", "tablet", "medicine", "drug", "antibiotic"}

// Match compares every prediction with every knowledge base key. A key is a
// possible match when the lowercase label contains it or it contains the
// label. Matches keep first-appearance order without duplicates.
func Match(preds []Prediction, keys []string) Identification {
	out := Identification{Predictions: preds, PossibleMatches: []string{}}
	seen := map[string]bool{}
	for _, p := range preds {
		label := strings.ToLower(p.Label)
		if label == "" {
			continue
		}
		for _, term := range medicationTerms {
			if strings.Contains(label, term) {
				out.LooksLikeMedication = true
				break
			}
		}
		for _, k := range keys {
			if seen[k] {
				continue
			}
			if strings.Contains(label, k) || strings.Contains(k, label) {
				seen[k] = true
				out.PossibleMatches = append(out.PossibleMatches, k)
			}
		}
	}
	return out
}

var titleCaser = cases.Title(language.English)

// DisplayLabel turns "golden_retriever" into "Golden Retriever".
func DisplayLabel(label string) string {
	return titleCaser.String(strings.ReplaceAll(label, "_", " "))
}
