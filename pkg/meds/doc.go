// Package meds holds the fixed medication reference table used to annotate
// prescription mentions and pill classification labels. The table is
// read-only reference data, not a clinical source.
package meds
