// Package expand rewrites free text so that Tok Pisin job vocabulary and
// Papua New Guinea place-name abbreviations also carry their English forms.
// The same expansion runs on indexed text and on queries, so both land in
// the same region of the embedding space.
package expand

import (
	"regexp"
	"sort"
	"strings"
)

// Kinds of dictionary matches reported by ExtractTerms.
const (
	KindTokPisin = "tok_pisin"
	KindLocation = "location"
)

// Term is one dictionary hit.
type Term struct {
	Term      string `json:"term"`
	Expansion string `json:"expansion"`
	Kind      string `json:"kind"`
}

type aliasPattern struct {
	entry
	re *regexp.Regexp
}

var (
	// termsByLength is tokPisinTerms ordered longest first; ties keep dictionary order.
	termsByLength []entry
	aliases       []aliasPattern
)

func init() {
	termsByLength = append([]entry(nil), tokPisinTerms...)
	sort.SliceStable(termsByLength, func(i, j int) bool {
		return len(termsByLength[i].key) > len(termsByLength[j].key)
	})
	aliases = make([]aliasPattern, len(locationAliases))
	for i, a := range locationAliases {
		aliases[i] = aliasPattern{entry: a, re: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(a.key) + `\b`)}
	}
}

// Expand appends the English expansions of every Tok Pisin term (substring,
// case-insensitive) and place-name alias (whole word) found in text.
// Expansions already present in the text are not repeated, and expansion text
// is itself scanned until nothing new is found, so Expand(Expand(t)) == Expand(t).
// Text with no matches is returned unchanged.
func Expand(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	expanded := text
	seen := make(map[string]struct{})
	for {
		added := false
		for _, t := range match(expanded) {
			if _, ok := seen[t.Expansion]; ok {
				continue
			}
			seen[t.Expansion] = struct{}{}
			if strings.Contains(strings.ToLower(expanded), strings.ToLower(t.Expansion)) {
				continue
			}
			expanded += " " + t.Expansion
			added = true
		}
		if !added {
			return expanded
		}
	}
}

// ContainsTerm reports whether text contains any Tok Pisin dictionary term.
func ContainsTerm(text string) bool {
	lower := strings.ToLower(text)
	for _, e := range tokPisinTerms {
		if strings.Contains(lower, e.key) {
			return true
		}
	}
	return false
}

// ExtractTerms returns the dictionary hits in text: Tok Pisin terms longest
// first, then place-name aliases in dictionary order.
func ExtractTerms(text string) []Term {
	return match(text)
}

// ExpandLocation appends the expansion of the first alias contained in
// location. Unlike Expand it matches substrings, because location columns
// hold short values such as "POM, NCD".
func ExpandLocation(location string) string {
	if strings.TrimSpace(location) == "" {
		return location
	}
	upper := strings.ToUpper(location)
	for _, a := range locationAliases {
		if strings.Contains(upper, a.key) {
			return location + " " + a.expansion
		}
	}
	return location
}

func match(text string) []Term {
	if text == "" {
		return nil
	}
	var found []Term
	lower := strings.ToLower(text)
	for _, e := range termsByLength {
		if strings.Contains(lower, e.key) {
			found = append(found, Term{Term: e.key, Expansion: e.expansion, Kind: KindTokPisin})
		}
	}
	for _, a := range aliases {
		if a.re.MatchString(text) {
			found = append(found, Term{Term: a.key, Expansion: a.expansion, Kind: KindLocation})
		}
	}
	return found
}
