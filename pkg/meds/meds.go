package meds

import (
	"sort"
	"strings"
)

// Record is the reference information kept for one medication.
type Record struct {
	Name         string `json:"name"`
	Purpose      string `json:"purpose"`
	Dosage       string `json:"dosage"`
	SideEffects  string `json:"side_effects"`
	Warnings     string `json:"warnings"`
	Interactions string `json:"interactions"`
}

// table is keyed by lowercase medication name and never mutated.
var table = map[string]Record{
	"aspirin": {
		Name:         "Aspirin",
		Purpose:      "Pain reliever and anti-inflammatory",
		Dosage:       "Adults: 1-2 tablets every 4-6 hours",
		SideEffects:  "Stomach irritation, heartburn, nausea",
		Warnings:     "May cause bleeding. Avoid if allergic to NSAIDs.",
		Interactions: "Blood thinners, other NSAIDs",
	},
	"lisinopril": {
		Name:         "Lisinopril",
		Purpose:      "ACE inhibitor for high blood pressure and heart failure",
		Dosage:       "Initially 10mg once daily, maintenance 20-40mg once daily",
		SideEffects:  "Dry cough, dizziness, headache",
		Warnings:     "May cause angioedema. Monitor kidney function.",
		Interactions: "Potassium supplements, diuretics",
	},
	"metformin": {
		Name:         "Metformin",
		Purpose:      "Treatment for type 2 diabetes",
		Dosage:       "Start with 500mg twice daily, max 2550mg/day",
		SideEffects:  "Nausea, diarrhea, stomach discomfort",
		Warnings:     "May cause lactic acidosis in kidney dysfunction",
		Interactions: "Alcohol, contrast dyes",
	},
	"atorvastatin": {
		Name:         "Atorvastatin",
		Purpose:      "Statin medication to lower cholesterol",
		Dosage:       "10-80mg once daily",
		SideEffects:  "Muscle pain, liver enzyme elevations",
		Warnings:     "Report unexplained muscle pain immediately",
		Interactions: "Grapefruit juice, certain antibiotics",
	},
	"amoxicillin": {
		Name:         "Amoxicillin",
		Purpose:      "Antibiotic for bacterial infections",
		Dosage:       "250-500mg three times daily for 7-14 days",
		SideEffects:  "Diarrhea, nausea, rash",
		Warnings:     "May cause allergic reactions",
		Interactions: "Certain blood thinners, birth control pills",
	},
	"levothyroxine": {
		Name:         "Levothyroxine",
		Purpose:      "Thyroid hormone replacement",
		Dosage:       "25-200mcg once daily on empty stomach",
		SideEffects:  "Headache, insomnia, nervousness at high doses",
		Warnings:     "Not for weight loss in normal thyroid function",
		Interactions: "Calcium/iron supplements, antacids",
	},
	"omeprazole": {
		Name:         "Omeprazole",
		Purpose:      "Proton pump inhibitor for acid reflux and ulcers",
		Dosage:       "20mg once daily for 4-8 weeks",
		SideEffects:  "Headache, abdominal pain, diarrhea",
		Warnings:     "Long-term use may increase fracture risk",
		Interactions: "Clopidogrel, certain HIV medications",
	},
	"sertraline": {
		Name:         "Sertraline",
		Purpose:      "SSRI antidepressant",
		Dosage:       "Start with 50mg once daily, maximum 200mg daily",
		SideEffects:  "Nausea, diarrhea, insomnia, sexual dysfunction",
		Warnings:     "May increase suicidal thoughts in young adults",
		Interactions: "MAO inhibitors, NSAIDs, blood thinners",
	},
	"paracetamol": {
		Name:         "Paracetamol (Acetaminophen)",
		Purpose:      "Pain reliever and fever reducer",
		Dosage:       "Adults: 500-1000mg every 4-6 hours, max 4g/day",
		SideEffects:  "Generally minimal at recommended doses",
		Warnings:     "Overdose can cause severe liver damage",
		Interactions: "Alcohol, certain liver medications",
	},
	"ibuprofen": {
		Name:         "Ibuprofen",
		Purpose:      "NSAID pain reliever and anti-inflammatory",
		Dosage:       "Adults: 200-400mg every 4-6 hours, max 3200mg/day",
		SideEffects:  "Stomach pain, heartburn, dizziness",
		Warnings:     "Long-term use increases risk of heart attack and stroke",
		Interactions: "Aspirin, blood pressure medications, diuretics",
	},
}

// minReverseMatch is the shortest name that may match as a substring of a key.
const minReverseMatch = 4

// Get returns the record stored under key (lowercased before lookup).
func Get(key string) (Record, bool) {
	r, ok := table[strings.ToLower(strings.TrimSpace(key))]
	return r, ok
}

// Lookup resolves a free-text medication name as read from a prescription.
// Exact key match wins; otherwise a key contained in the name, then a name
// of at least four letters contained in a key. Keys are tried in sorted
// order so the result is stable.
func Lookup(name string) (Record, bool) {
	low := strings.ToLower(strings.TrimSpace(name))
	low = strings.Trim(low, ".,;:-()")
	if low == "" {
		return Record{}, false
	}
	if r, ok := table[low]; ok {
		return r, true
	}
	keys := Keys()
	for _, k := range keys {
		if strings.Contains(low, k) {
			return table[k], true
		}
	}
	if len(low) >= minReverseMatch {
		for _, k := range keys {
			if strings.Contains(k, low) {
				return table[k], true
			}
		}
	}
	return Record{}, false
}

// Keys returns the lowercase table keys in sorted order.
func Keys() []string {
	out := make([]string, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// All returns every record ordered by key.
func All() []Record {
	keys := Keys()
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, table[k])
	}
	return out
}

// Len reports how many medications the table holds.
func Len() int { return len(table) }
