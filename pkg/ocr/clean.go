package ocr

import (
	"strings"
	"unicode"
)

// CleanText drops non-printable characters, collapses horizontal whitespace
// and removes blank lines. Line breaks are kept.
func CleanText(t string) string {
	t = strings.ReplaceAll(t, "\r\n", "\n")
	t = strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t' || r == '\r' || unicode.IsSpace(r):
			return ' '
		case !unicode.IsPrint(r):
			return -1
		}
		return r
	}, t)
	lines := strings.Split(t, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// snippet returns a shortened version of text for logging.
func snippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " | ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
