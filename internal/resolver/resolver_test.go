package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/tickerchat/internal/common"
)

func TestResolve(t *testing.T) {
	r := New(nil)

	tests := []struct {
		name       string
		input      string
		tickers    []string
		unresolved []string
	}{
		{"uppercase tickers", "Analyze AAPL and MSFT", []string{"AAPL", "MSFT"}, nil},
		{"company names", "Compare apple, microsoft and google", []string{"AAPL", "MSFT", "GOOGL"}, nil},
		{"multi-word names", "bank of america vs jp morgan", []string{"BAC", "JPM"}, nil},
		{"leading article", "How is the home depot doing?", []string{"HD"}, nil},
		{"possessive", "What's Microsoft's outlook?", []string{"MSFT"}, nil},
		{"lowercase tickers", "nvda and amd", []string{"NVDA", "AMD"}, nil},
		{"ampersand name", "AT&T and BP", []string{"T", "BP"}, nil},
		{"close misspelling auto-resolves", "goldman sachss", []string{"GS"}, nil},
		{"unlisted ticker shape", "Research PLTR", []string{"PLTR"}, nil},
		{"class share ticker", "BRK.B outlook", []string{"BRK.B"}, nil},
		{"numbers and short tokens ignored", "Tesla 2024 q3", []string{"TSLA"}, nil},
		{"single misspelling", "Analyze matae for 1 month", nil, []string{"matae"}},
		{"two misspellings", "Compare microsft and gogle", nil, []string{"microsft", "gogle"}},
		{"mixed", "Compare Apple with Zorblax", []string{"AAPL"}, []string{"Zorblax"}},
		{"only stop words", "please tell me about the stock market", nil, nil},
		{"empty", "", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.input)
			assert.Equal(t, tt.tickers, res.Tickers)
			assert.Equal(t, tt.unresolved, res.Unresolved)
		})
	}
}

func TestResolve_FirstSeenOrderAndDedup(t *testing.T) {
	r := New(nil)

	res := r.Resolve("tesla, MSFT, Tesla, TSLA and microsoft")
	assert.Equal(t, []string{"TSLA", "MSFT"}, res.Tickers)

	res = r.Resolve("Zorblax Qwerty zorblax qwerty Florp")
	assert.Empty(t, res.Tickers)
	assert.Equal(t, []string{"Zorblax", "Qwerty", "Florp"}, res.Unresolved)
}

func TestResolve_OrdinaryWordsAreNotUnresolved(t *testing.T) {
	r := New(nil)

	res := r.Resolve("How is Apple doing compared to Microsoft lately?")
	assert.Equal(t, []string{"AAPL", "MSFT"}, res.Tickers)
	assert.Empty(t, res.Unresolved)

	// Lowercase words are kept only when the directory has something close.
	res = r.Resolve("how is microsft doing lately")
	assert.Empty(t, res.Tickers)
	assert.Equal(t, []string{"microsft"}, res.Unresolved)
}

func TestResolve_Deterministic(t *testing.T) {
	r := New(nil)
	input := "Compare microsft, NVDA, gogle and coca cola over the next quarter"
	first := r.Resolve(input)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Resolve(input))
	}
	assert.Equal(t, []string{"NVDA", "KO"}, first.Tickers)
	assert.Equal(t, []string{"microsft", "gogle"}, first.Unresolved)
}

func TestResolve_FuzzyThreshold(t *testing.T) {
	strict := New(nil)
	assert.Equal(t, []string{"microsft"}, strict.Resolve("microsft").Unresolved)

	lenient := New(nil, WithFuzzyThreshold(0.8))
	assert.Equal(t, []string{"MSFT"}, lenient.Resolve("microsft").Tickers)

	// Out of range values are ignored.
	assert.Equal(t, DefaultFuzzyThreshold, New(nil, WithFuzzyThreshold(1.5)).fuzzyThreshold)
}

func TestSuggest(t *testing.T) {
	r := New(nil)

	suggestions := r.Suggest("microsft", 3)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "MSFT", suggestions[0].Ticker)
	assert.Equal(t, "Microsoft Corporation", suggestions[0].Name)
	assert.InDelta(t, 0.94, suggestions[0].Ratio, 0.01)

	suggestions = r.Suggest("matae", 3)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "META", suggestions[0].Ticker)

	// One suggestion per ticker.
	seen := map[string]bool{}
	for _, s := range r.Suggest("exxon mobill", 5) {
		assert.False(t, seen[s.Ticker], "duplicate ticker %s", s.Ticker)
		seen[s.Ticker] = true
	}

	assert.Empty(t, r.Suggest("qqqqqqqq", 3))
	assert.Empty(t, r.Suggest("apple", 0))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "apple", Normalize("Apple Inc."))
	assert.Equal(t, "microsoft", Normalize("  Microsoft   Corporation "))
	assert.Equal(t, "att", Normalize("AT&T"))
	assert.Equal(t, "mcdonalds", Normalize("McDonald's"))
	assert.Equal(t, "coca-cola", Normalize("Coca-Cola Company"))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("meta", "meta"))
	assert.Equal(t, 1.0, Ratio("", ""))
	assert.InDelta(t, 0.909, Ratio("google", "gogle"), 0.001)
	assert.Zero(t, Ratio("abc", "xyz"))
}

func TestDirectory(t *testing.T) {
	d := DefaultDirectory()

	assert.True(t, d.HasTicker("META"))
	assert.True(t, d.HasTicker("meta"))
	name, ok := d.CompanyName("META")
	assert.True(t, ok)
	assert.Equal(t, "Meta Platforms Inc.", name)

	ticker, ok := d.Lookup("facebook")
	assert.True(t, ok)
	assert.Equal(t, "META", ticker)

	extended := d.With(Company{Ticker: "pltr", Name: "Palantir Technologies Inc.", Aliases: []string{"palantir"}})
	assert.True(t, extended.HasTicker("PLTR"))
	assert.False(t, d.HasTicker("PLTR"), "With must not modify the receiver")
	assert.Equal(t, d.Len()+1, extended.Len())
}

func TestLoadDirectoryFile(t *testing.T) {
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "companies.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[[companies]]
ticker = "PLTR"
name = "Palantir Technologies Inc."
aliases = ["palantir"]
`), 0644))

	yamlPath := filepath.Join(dir, "companies.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
companies:
  - ticker: SNOW
    name: Snowflake Inc.
    aliases: [snowflake]
`), 0644))

	companies, err := LoadDirectoryFile(tomlPath)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "PLTR", companies[0].Ticker)

	companies, err = LoadDirectoryFile(yamlPath)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, []string{"snowflake"}, companies[0].Aliases)

	_, err = LoadDirectoryFile(filepath.Join(dir, "companies.json"))
	assert.Error(t, err)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("companies:\n  - name: No Ticker\n"), 0644))
	_, err = LoadDirectoryFile(badPath)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte("companies:\n  - ticker: SNOW\n    name: Snowflake Inc.\n    aliases: [snowflake]\n"), 0644))

	r, err := NewFromConfig(&common.ResolverConfig{
		FuzzyThreshold:      0.95,
		SuggestionThreshold: 0.6,
		DirectoryFile:       path,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"SNOW", "AAPL"}, r.Resolve("snowflake and apple").Tickers)

	_, err = NewFromConfig(&common.ResolverConfig{DirectoryFile: filepath.Join(t.TempDir(), "missing.toml")})
	assert.Error(t, err)
}
