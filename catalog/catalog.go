// Package catalog provides the fixed medication list used to autocomplete
// manual entries. Dictated names never go through it.
package catalog

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Medications marketed in Tunisia (sample).
var defaultEntries = []string{
	"DOLIPRANE", "PANADOL", "EFFERALGAN", "AUGMENTIN", "AMOXIL", "CLAMOXYL",
	"SPASFON", "FLAGYL", "CELESTENE", "SOLUPRED", "VENTOLINE", "MAXILASE",
	"NEXIUM", "INEXIUM", "TAHOR", "CRESTOR", "PLAVIX", "KARDEGIC", "ASPIRINE",
	"LASILIX", "DIAMICRON", "GLUCOPHAGE", "INSULATARD", "NOVORAPID", "LANTUS",
	"COVERSYL", "APROVEL", "ATACAND", "XANAX", "LEXOMIL", "STILNOX", "IMOVANE",
	"ZOLOFT", "PROZAC", "DEROXAT", "LAROXYL", "VOLTARENE", "FELDENE", "KETOPROFENE",
	"IBUPROFENE", "TRIMETABOL", "PERVITAL", "PRIMPERAN", "MOTILIUM", "SMECTA", "ULCAR",
	"GAVISCON", "MAALOX", "ZINNAT", "ORELOX", "CEFIXIME", "PYOSTACINE",
}

// MinPrefixLength is the shortest prefix that yields suggestions.
const MinPrefixLength = 2

// Catalog is an immutable, alphabetically ordered list of canonical names.
type Catalog struct {
	entries []string
	folded  []string
}

// New builds a catalog from entries, sorted alphabetically.
func New(entries []string) *Catalog {
	sorted := make([]string, len(entries))
	copy(sorted, entries)
	sort.Strings(sorted)

	fold := cases.Fold()
	folded := make([]string, len(sorted))
	for i, e := range sorted {
		folded[i] = fold.String(e)
	}

	return &Catalog{entries: sorted, folded: folded}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(defaultEntries)
}

// Suggest returns, in catalog order, the entries starting with prefix, ignoring
// case. Prefixes shorter than MinPrefixLength return an empty slice.
func (c *Catalog) Suggest(prefix string) []string {
	if utf8.RuneCountInString(prefix) < MinPrefixLength {
		return []string{}
	}

	needle := cases.Fold().String(prefix)
	matches := []string{}
	for i, f := range c.folded {
		if strings.HasPrefix(f, needle) {
			matches = append(matches, c.entries[i])
		}
	}
	return matches
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
