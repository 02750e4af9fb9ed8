package resolver

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var (
	corporateSuffixRegex = regexp.MustCompile(`\s+(inc|corp|corporation|company|co|ltd|limited)\b`)
	nonWordRegex         = regexp.MustCompile(`[^\w\s-]`)
)

// Normalize lowercases text, strips corporate suffixes and punctuation and
// collapses whitespace. Directory keys and queries go through the same path.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = corporateSuffixRegex.ReplaceAllString(text, "")
	text = nonWordRegex.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0, 1],
// computed over characters.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	m := difflib.NewMatcher(splitChars(a), splitChars(b))
	return m.Ratio()
}

type scoredKey struct {
	key   string
	ratio float64
}

// closeMatches returns keys whose ratio against word is at least cutoff,
// best first. Ties keep the sorted key order.
func closeMatches(word string, keys []string, n int, cutoff float64) []scoredKey {
	if n <= 0 || word == "" {
		return nil
	}
	wordChars := splitChars(word)
	var matches []scoredKey
	for _, key := range keys {
		m := difflib.NewMatcher(splitChars(key), wordChars)
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		if r := m.Ratio(); r >= cutoff {
			matches = append(matches, scoredKey{key: key, ratio: r})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ratio > matches[j].ratio
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches
}

func splitChars(s string) []string {
	return strings.Split(s, "")
}
