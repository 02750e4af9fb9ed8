package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Company is one directory entry. Name is the display name used in
// confirmation questions; Aliases are additional lookup keys.
type Company struct {
	Ticker  string   `toml:"ticker" yaml:"ticker"`
	Name    string   `toml:"name" yaml:"name"`
	Aliases []string `toml:"aliases" yaml:"aliases"`
}

// directoryFile is the on-disk shape of a directory extension file
type directoryFile struct {
	Companies []Company `toml:"companies" yaml:"companies"`
}

// Directory is a bidirectional name <-> ticker table. It is read-only after
// construction and safe for concurrent use.
type Directory struct {
	byKey    map[string]string // normalized name/alias -> ticker
	byTicker map[string]string // ticker -> display name
	keys     []string          // sorted lookup keys for fuzzy matching
}

// NewDirectory builds a directory from the given companies. Later entries
// override earlier ones for the same key.
func NewDirectory(companies ...Company) *Directory {
	d := &Directory{
		byKey:    make(map[string]string),
		byTicker: make(map[string]string),
	}
	for _, c := range companies {
		d.add(c)
	}
	d.rebuildKeys()
	return d
}

// DefaultDirectory returns the built-in company table.
func DefaultDirectory() *Directory {
	return NewDirectory(defaultCompanies...)
}

// With returns a new directory containing d's entries plus companies.
func (d *Directory) With(companies ...Company) *Directory {
	merged := &Directory{
		byKey:    make(map[string]string, len(d.byKey)+len(companies)),
		byTicker: make(map[string]string, len(d.byTicker)+len(companies)),
	}
	for k, v := range d.byKey {
		merged.byKey[k] = v
	}
	for k, v := range d.byTicker {
		merged.byTicker[k] = v
	}
	for _, c := range companies {
		merged.add(c)
	}
	merged.rebuildKeys()
	return merged
}

func (d *Directory) add(c Company) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Ticker))
	if ticker == "" {
		return
	}
	if c.Name != "" {
		d.byTicker[ticker] = c.Name
		if key := Normalize(c.Name); key != "" {
			d.byKey[key] = ticker
		}
	} else if _, ok := d.byTicker[ticker]; !ok {
		d.byTicker[ticker] = ticker
	}
	for _, alias := range c.Aliases {
		if key := Normalize(alias); key != "" {
			d.byKey[key] = ticker
		}
	}
}

func (d *Directory) rebuildKeys() {
	d.keys = make([]string, 0, len(d.byKey))
	for k := range d.byKey {
		d.keys = append(d.keys, k)
	}
	sort.Strings(d.keys)
}

// Lookup returns the ticker for an already-normalized name or alias.
func (d *Directory) Lookup(key string) (string, bool) {
	ticker, ok := d.byKey[key]
	return ticker, ok
}

// HasTicker reports whether ticker is listed.
func (d *Directory) HasTicker(ticker string) bool {
	_, ok := d.byTicker[strings.ToUpper(ticker)]
	return ok
}

// CompanyName returns the display name for ticker.
func (d *Directory) CompanyName(ticker string) (string, bool) {
	name, ok := d.byTicker[strings.ToUpper(ticker)]
	return name, ok
}

// Len returns the number of distinct tickers.
func (d *Directory) Len() int {
	return len(d.byTicker)
}

// LoadDirectoryFile reads extra companies from a .toml, .yaml or .yml file.
func LoadDirectoryFile(path string) ([]Company, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file %s: %w", path, err)
	}

	var file directoryFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &file)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("unsupported directory file type: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse directory file %s: %w", path, err)
	}

	for i, c := range file.Companies {
		if strings.TrimSpace(c.Ticker) == "" {
			return nil, fmt.Errorf("directory file %s: entry %d has no ticker", path, i)
		}
	}
	return file.Companies, nil
}

var defaultCompanies = []Company{
	// Technology
	{Ticker: "AAPL", Name: "Apple Inc.", Aliases: []string{"apple", "apple computer"}},
	{Ticker: "MSFT", Name: "Microsoft Corporation", Aliases: []string{"microsoft"}},
	{Ticker: "GOOGL", Name: "Alphabet Inc.", Aliases: []string{"google", "alphabet"}},
	{Ticker: "AMZN", Name: "Amazon.com Inc.", Aliases: []string{"amazon", "amazon.com"}},
	{Ticker: "META", Name: "Meta Platforms Inc.", Aliases: []string{"meta", "facebook"}},
	{Ticker: "NVDA", Name: "NVIDIA Corporation", Aliases: []string{"nvidia"}},
	{Ticker: "TSLA", Name: "Tesla Inc.", Aliases: []string{"tesla"}},
	{Ticker: "NFLX", Name: "Netflix Inc.", Aliases: []string{"netflix"}},
	{Ticker: "ADBE", Name: "Adobe Inc.", Aliases: []string{"adobe"}},
	{Ticker: "CRM", Name: "Salesforce Inc.", Aliases: []string{"salesforce"}},
	{Ticker: "ORCL", Name: "Oracle Corporation", Aliases: []string{"oracle"}},
	{Ticker: "IBM", Name: "International Business Machines", Aliases: []string{"ibm"}},
	{Ticker: "CSCO", Name: "Cisco Systems Inc.", Aliases: []string{"cisco"}},

	// Semiconductors
	{Ticker: "AMD", Name: "Advanced Micro Devices Inc.", Aliases: []string{"amd"}},
	{Ticker: "INTC", Name: "Intel Corporation", Aliases: []string{"intel"}},
	{Ticker: "TSM", Name: "Taiwan Semiconductor Manufacturing", Aliases: []string{"taiwan semiconductor", "tsmc", "tsm"}},
	{Ticker: "QCOM", Name: "Qualcomm Inc.", Aliases: []string{"qualcomm"}},
	{Ticker: "AVGO", Name: "Broadcom Inc.", Aliases: []string{"broadcom"}},
	{Ticker: "MU", Name: "Micron Technology Inc.", Aliases: []string{"micron"}},

	// Financials
	{Ticker: "JPM", Name: "JPMorgan Chase & Co.", Aliases: []string{"jpmorgan", "jp morgan", "jpmorgan chase"}},
	{Ticker: "BAC", Name: "Bank of America Corporation", Aliases: []string{"bank of america", "bofa"}},
	{Ticker: "GS", Name: "Goldman Sachs Group Inc.", Aliases: []string{"goldman sachs"}},
	{Ticker: "MS", Name: "Morgan Stanley", Aliases: []string{"morgan stanley"}},
	{Ticker: "WFC", Name: "Wells Fargo & Company", Aliases: []string{"wells fargo"}},
	{Ticker: "C", Name: "Citigroup Inc.", Aliases: []string{"citigroup", "citi"}},
	{Ticker: "V", Name: "Visa Inc.", Aliases: []string{"visa"}},
	{Ticker: "MA", Name: "Mastercard Inc.", Aliases: []string{"mastercard"}},
	{Ticker: "PYPL", Name: "PayPal Holdings Inc.", Aliases: []string{"paypal"}},

	// Retail and consumer
	{Ticker: "WMT", Name: "Walmart Inc.", Aliases: []string{"walmart"}},
	{Ticker: "TGT", Name: "Target Corporation", Aliases: []string{"target"}},
	{Ticker: "COST", Name: "Costco Wholesale Corporation", Aliases: []string{"costco"}},
	{Ticker: "HD", Name: "The Home Depot Inc.", Aliases: []string{"home depot"}},
	{Ticker: "NKE", Name: "Nike Inc.", Aliases: []string{"nike"}},
	{Ticker: "SBUX", Name: "Starbucks Corporation", Aliases: []string{"starbucks"}},
	{Ticker: "MCD", Name: "McDonald's Corporation", Aliases: []string{"mcdonalds", "mcdonald's"}},
	{Ticker: "KO", Name: "The Coca-Cola Company", Aliases: []string{"coca cola", "coca-cola", "coke"}},
	{Ticker: "PEP", Name: "PepsiCo Inc.", Aliases: []string{"pepsi", "pepsico"}},
	{Ticker: "PG", Name: "Procter & Gamble Company", Aliases: []string{"procter & gamble", "procter and gamble", "pg"}},
	{Ticker: "DIS", Name: "The Walt Disney Company", Aliases: []string{"disney", "walt disney"}},
	{Ticker: "CMCSA", Name: "Comcast Corporation", Aliases: []string{"comcast"}},

	// Healthcare
	{Ticker: "JNJ", Name: "Johnson & Johnson", Aliases: []string{"johnson and johnson"}},
	{Ticker: "PFE", Name: "Pfizer Inc.", Aliases: []string{"pfizer"}},
	{Ticker: "MRNA", Name: "Moderna Inc.", Aliases: []string{"moderna"}},
	{Ticker: "ABBV", Name: "AbbVie Inc.", Aliases: []string{"abbvie"}},
	{Ticker: "MRK", Name: "Merck & Co. Inc.", Aliases: []string{"merck"}},
	{Ticker: "LLY", Name: "Eli Lilly and Company", Aliases: []string{"eli lilly"}},
	{Ticker: "UNH", Name: "UnitedHealth Group Inc.", Aliases: []string{"unitedhealth", "united health"}},

	// Energy
	{Ticker: "XOM", Name: "Exxon Mobil Corporation", Aliases: []string{"exxon", "exxonmobil", "exxon mobil"}},
	{Ticker: "CVX", Name: "Chevron Corporation", Aliases: []string{"chevron"}},
	{Ticker: "COP", Name: "ConocoPhillips", Aliases: []string{"conocophillips"}},
	{Ticker: "SHEL", Name: "Shell plc", Aliases: []string{"shell"}},
	{Ticker: "BP", Name: "BP plc", Aliases: []string{"bp"}},

	// Automotive and industrials
	{Ticker: "F", Name: "Ford Motor Company", Aliases: []string{"ford"}},
	{Ticker: "GM", Name: "General Motors Company", Aliases: []string{"general motors", "gm"}},
	{Ticker: "TM", Name: "Toyota Motor Corporation", Aliases: []string{"toyota"}},
	{Ticker: "HMC", Name: "Honda Motor Co. Ltd.", Aliases: []string{"honda"}},
	{Ticker: "BA", Name: "The Boeing Company", Aliases: []string{"boeing"}},
	{Ticker: "CAT", Name: "Caterpillar Inc.", Aliases: []string{"caterpillar"}},

	// Airlines
	{Ticker: "DAL", Name: "Delta Air Lines Inc.", Aliases: []string{"delta", "delta airlines"}},
	{Ticker: "UAL", Name: "United Airlines Holdings Inc.", Aliases: []string{"united airlines"}},
	{Ticker: "AAL", Name: "American Airlines Group Inc.", Aliases: []string{"american airlines"}},
	{Ticker: "LUV", Name: "Southwest Airlines Co.", Aliases: []string{"southwest", "southwest airlines"}},

	// Telecom
	{Ticker: "VZ", Name: "Verizon Communications Inc.", Aliases: []string{"verizon"}},
	{Ticker: "T", Name: "AT&T Inc.", Aliases: []string{"at&t", "att"}},
}
