// Package resolver maps free-form text to canonical ticker symbols using a
// static company directory. It performs no I/O and is safe for concurrent use.
package resolver

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ternarybob/tickerchat/internal/common"
)

const (
	// DefaultFuzzyThreshold is the minimum similarity for an automatic match.
	// Anything below goes through confirmation instead.
	DefaultFuzzyThreshold = 0.95

	// DefaultSuggestionThreshold is the cutoff used for local suggestions.
	DefaultSuggestionThreshold = 0.6

	minTokenLength = 3
	maxWindow      = 3
)

// Resolution is the outcome of resolving one piece of text
type Resolution struct {
	// Tickers are resolved symbols in first-seen order, de-duplicated.
	Tickers []string `json:"tickers"`
	// Unresolved are candidate company tokens that matched nothing, in
	// first-seen order, de-duplicated case-insensitively.
	Unresolved []string `json:"unresolved"`
}

// Suggestion is a local close match for a token
type Suggestion struct {
	Name    string  `json:"name"`
	Ticker  string  `json:"ticker"`
	Matched string  `json:"matched"`
	Ratio   float64 `json:"ratio"`
}

// Resolver resolves text against a Directory
type Resolver struct {
	directory           *Directory
	fuzzyThreshold      float64
	suggestionThreshold float64
}

// Option configures a Resolver
type Option func(*Resolver)

// WithFuzzyThreshold sets the automatic-match similarity cutoff.
func WithFuzzyThreshold(threshold float64) Option {
	return func(r *Resolver) {
		if threshold > 0 && threshold <= 1 {
			r.fuzzyThreshold = threshold
		}
	}
}

// WithSuggestionThreshold sets the cutoff used by Suggest.
func WithSuggestionThreshold(threshold float64) Option {
	return func(r *Resolver) {
		if threshold > 0 && threshold <= 1 {
			r.suggestionThreshold = threshold
		}
	}
}

// New creates a resolver over directory (DefaultDirectory when nil).
func New(directory *Directory, opts ...Option) *Resolver {
	if directory == nil {
		directory = DefaultDirectory()
	}
	r := &Resolver{
		directory:           directory,
		fuzzyThreshold:      DefaultFuzzyThreshold,
		suggestionThreshold: DefaultSuggestionThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromConfig builds a resolver from the [resolver] config section,
// merging the optional directory extension file.
func NewFromConfig(config *common.ResolverConfig) (*Resolver, error) {
	directory := DefaultDirectory()
	if config.DirectoryFile != "" {
		extra, err := LoadDirectoryFile(config.DirectoryFile)
		if err != nil {
			return nil, err
		}
		directory = directory.With(extra...)
	}
	return New(directory,
		WithFuzzyThreshold(config.FuzzyThreshold),
		WithSuggestionThreshold(config.SuggestionThreshold),
	), nil
}

// Directory returns the underlying directory.
func (r *Resolver) Directory() *Directory {
	return r.directory
}

// CompanyName returns the display name for ticker, or the ticker itself.
func (r *Resolver) CompanyName(ticker string) string {
	if name, ok := r.directory.CompanyName(ticker); ok {
		return name
	}
	return ticker
}

// Resolve extracts tickers from text. Windows of three, two and then one
// word are tried at each position so multi-word names win over their parts.
func (r *Resolver) Resolve(text string) Resolution {
	words := tokenize(text)
	var res Resolution
	seenTickers := make(map[string]bool)
	seenTokens := make(map[string]bool)

	addTicker := func(ticker string) {
		if !seenTickers[ticker] {
			seenTickers[ticker] = true
			res.Tickers = append(res.Tickers, ticker)
		}
	}

	for i := 0; i < len(words); {
		w := words[i]
		if w.skip() {
			i++
			continue
		}

		// Listed tickers typed in uppercase bypass fuzzy matching.
		if common.IsTickerShape(w.clean) && r.directory.HasTicker(w.clean) {
			addTicker(w.clean)
			i++
			continue
		}

		if ticker, size := r.matchWindow(words, i, maxWindow, 2); size > 0 {
			addTicker(ticker)
			i += size
			continue
		}

		if common.IsTickerShape(w.clean) {
			addTicker(w.clean)
			i++
			continue
		}

		if ticker, size := r.matchWindow(words, i, 1, 1); size > 0 {
			addTicker(ticker)
			i += size
			continue
		}

		if !w.ignorable() && r.worthAsking(w) {
			key := strings.ToLower(w.clean)
			if !seenTokens[key] {
				seenTokens[key] = true
				res.Unresolved = append(res.Unresolved, w.clean)
			}
		}
		i++
	}

	return res
}

// matchWindow tries windows of maxSize down to minSize words starting at i.
// It returns the ticker and the number of words consumed, or size 0.
func (r *Resolver) matchWindow(words []word, i, maxSize, minSize int) (string, int) {
	for size := maxSize; size >= minSize; size-- {
		if i+size > len(words) || !windowOK(words[i:i+size]) {
			continue
		}
		window := words[i : i+size]
		if ticker, ok := r.match(joinWords(window, false), size == 1); ok {
			return ticker, size
		}
		// Retry without possessives: "Apple's" -> "Apple".
		if stripped := joinWords(window, true); stripped != joinWords(window, false) {
			if ticker, ok := r.match(stripped, size == 1); ok {
				return ticker, size
			}
		}
	}
	return "", 0
}

func joinWords(window []word, stripPossessive bool) string {
	parts := make([]string, len(window))
	for k, w := range window {
		if stripPossessive {
			parts[k] = w.clean
		} else {
			parts[k] = w.raw
		}
	}
	return strings.Join(parts, " ")
}

// match resolves a single phrase: exact name, lowercase ticker, then fuzzy.
func (r *Resolver) match(phrase string, single bool) (string, bool) {
	key := Normalize(phrase)
	if key == "" {
		return "", false
	}
	if ticker, ok := r.directory.Lookup(key); ok {
		return ticker, true
	}
	if single {
		if len(key) < minTokenLength || isNumeric(key) {
			return "", false
		}
		if upper := strings.ToUpper(key); r.directory.HasTicker(upper) {
			return upper, true
		}
	}
	if matches := closeMatches(key, r.directory.keys, 1, r.fuzzyThreshold); len(matches) > 0 {
		ticker, _ := r.directory.Lookup(matches[0].key)
		return ticker, true
	}
	return "", false
}

// Suggest returns up to n directory companies close to text, best first,
// one per ticker.
func (r *Resolver) Suggest(text string, n int) []Suggestion {
	key := Normalize(text)
	if key == "" || n <= 0 {
		return nil
	}

	// Over-fetch since several keys can map to one ticker.
	matches := closeMatches(key, r.directory.keys, n*4, r.suggestionThreshold)
	seen := make(map[string]bool)
	var suggestions []Suggestion
	for _, m := range matches {
		ticker, _ := r.directory.Lookup(m.key)
		if seen[ticker] {
			continue
		}
		seen[ticker] = true
		suggestions = append(suggestions, Suggestion{
			Name:    r.CompanyName(ticker),
			Ticker:  ticker,
			Matched: m.key,
			Ratio:   m.ratio,
		})
		if len(suggestions) == n {
			break
		}
	}
	return suggestions
}

// word is one whitespace-separated token of the input
type word struct {
	raw      string // surrounding punctuation removed
	clean    string // raw without a trailing possessive
	boundary bool   // followed by a clause separator such as a comma
}

func (w word) skip() bool {
	return w.clean == "" || isStopword(w.clean)
}

// ignorable reports whether an unmatched word should be dropped rather than
// reported as unresolved.
func (w word) ignorable() bool {
	return len([]rune(w.clean)) < minTokenLength || isNumeric(w.clean)
}

// worthAsking reports whether an unmatched word looks like an attempted
// company name: capitalised as typed, or close to a directory entry.
// Ordinary lowercase words such as "lately" are dropped.
func (r *Resolver) worthAsking(w word) bool {
	if first, _ := utf8.DecodeRuneInString(w.clean); unicode.IsUpper(first) {
		return true
	}
	return len(r.Suggest(w.clean, 1)) > 0
}

// windowOK rejects windows that cross a clause boundary or contain stop words
// or ticker-shaped tokens after the first position.
func windowOK(window []word) bool {
	for k, w := range window {
		if k > 0 && w.skip() && !isJoiner(w.clean) {
			return false
		}
		if k > 0 && common.IsTickerShape(w.clean) {
			return false
		}
		if k < len(window)-1 && w.boundary {
			return false
		}
	}
	return !isJoiner(window[len(window)-1].clean)
}

func tokenize(text string) []word {
	var words []word
	for _, field := range strings.Fields(text) {
		trailing := strings.ContainsAny(field[len(field)-1:], ",;:!?")
		parts := strings.FieldsFunc(field, func(r rune) bool {
			return r == ',' || r == ';'
		})
		for k, part := range parts {
			raw := trimPunct(part)
			words = append(words, word{
				raw:      raw,
				clean:    stripPossessive(raw),
				boundary: k < len(parts)-1 || trailing,
			})
		}
	}
	return words
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != '&'
	})
}

func stripPossessive(s string) string {
	for _, suffix := range []string{"'s", "’s", "'S"} {
		if trimmed := strings.TrimSuffix(s, suffix); trimmed != s {
			return trimmed
		}
	}
	return s
}

func isNumeric(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '.' || r == ',' || r == '%' || r == '$':
		default:
			return false
		}
	}
	return hasDigit
}

// joiners may appear inside a multi-word company name
var joiners = map[string]bool{"of": true, "and": true, "&": true}

func isJoiner(s string) bool {
	return joiners[strings.ToLower(s)]
}
