package prescription

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CanonicalName trims a medication name and upper-cases it with French rules.
// Manual entry and dictation both store names in this form.
func CanonicalName(name string) string {
	// A Caser keeps state between calls, so one is built per call.
	return cases.Upper(language.French).String(strings.TrimSpace(name))
}

// SameName compares two medication names case-insensitively.
func SameName(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}
