package reconciliation

import (
	"slices"
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	minTokenRunes      = 2
	minFuzzyTokenRunes = 4
	fuzzyTokenRatio    = 0.8
)

// Name similarity credits, strongest first
const (
	nameExact     = 1.0
	nameContained = 0.8
	nameShared    = 0.5
	nameFuzzy     = 0.4
)

// foldText lowercases and strips combining marks, so "Hélène" and "HELENE" compare equal
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// nameTokens returns the sorted distinct words of a folded name
func nameTokens(s string) []string {
	fields := strings.FieldsFunc(foldText(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) >= minTokenRunes {
			tokens = append(tokens, f)
		}
	}
	slices.Sort(tokens)
	return slices.Compact(tokens)
}

// nameSimilarity compares the payer on a bank line with a tenant display name. Word order is
// irrelevant: "DUPONT JEAN" and "Jean Dupont" are an exact match.
func nameSimilarity(payerName, tenantName string) float64 {
	payer := nameTokens(payerName)
	tenant := nameTokens(tenantName)
	if len(payer) == 0 || len(tenant) == 0 {
		return 0
	}
	if slices.Equal(payer, tenant) {
		return nameExact
	}

	common := 0
	for _, tok := range tenant {
		if _, found := slices.BinarySearch(payer, tok); found {
			common++
		}
	}
	switch {
	case common == len(tenant):
		return nameContained
	case common > 0:
		return nameShared
	}

	for _, p := range payer {
		for _, o := range tenant {
			if fuzzyTokenMatch(p, o) {
				return nameFuzzy
			}
		}
	}
	return 0
}

// fuzzyTokenMatch tolerates a typo or a truncated letter in longer words
func fuzzyTokenMatch(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < minFuzzyTokenRunes || len(rb) < minFuzzyTokenRunes {
		return false
	}
	return levenshtein.RatioForStrings(ra, rb, levenshtein.DefaultOptions) >= fuzzyTokenRatio
}
