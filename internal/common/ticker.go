// Package common provides shared utilities across the application.
package common

import (
	"regexp"
	"strings"
)

// Ticker represents an exchange-qualified ticker.
// Format: EXCHANGE:CODE (e.g., "NASDAQ:AAPL", "NYSE:JPM")
type Ticker struct {
	// Exchange is the exchange code (e.g., "NYSE", "NASDAQ")
	Exchange string
	// Code is the security code (e.g., "AAPL")
	Code string
	// Raw is the original ticker string
	Raw string
}

// ExchangeToSuffix maps exchange codes to EODHD API suffixes.
var ExchangeToSuffix = map[string]string{
	"NYSE":   ".US",
	"NASDAQ": ".US",
	"AMEX":   ".US",
	"US":     ".US",
	"ASX":    ".AU",
	"LSE":    ".LSE",
	"TSX":    ".TO",
	"XETRA":  ".XETRA",
}

// suffixToExchange is the reverse of ExchangeToSuffix for EODHD-style input.
var suffixToExchange = map[string]string{
	".US":    "US",
	".AU":    "ASX",
	".LSE":   "LSE",
	".TO":    "TSX",
	".XETRA": "XETRA",
}

// DefaultExchange is used when parsing tickers without an exchange prefix.
var DefaultExchange = "NASDAQ"

// SetDefaultExchange sets the default exchange for parsing tickers.
func SetDefaultExchange(exchange string) {
	if exchange != "" {
		DefaultExchange = strings.ToUpper(exchange)
	}
}

// tickerShape matches plain symbols and share-class symbols such as BRK.B
var tickerShape = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`)

// IsTickerShape reports whether s, exactly as typed, looks like a ticker symbol.
func IsTickerShape(s string) bool {
	return tickerShape.MatchString(s)
}

// ParseTicker parses a ticker string.
// Supports formats:
//   - "NYSE:JPM" -> Exchange="NYSE", Code="JPM"
//   - "AAPL.US"  -> Exchange="US", Code="AAPL" (EODHD CODE.SUFFIX form)
//   - "aapl"     -> Exchange=DefaultExchange, Code="AAPL"
func ParseTicker(ticker string) Ticker {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return Ticker{}
	}

	if idx := strings.Index(ticker, ":"); idx > 0 {
		return Ticker{
			Exchange: strings.ToUpper(ticker[:idx]),
			Code:     strings.ToUpper(ticker[idx+1:]),
			Raw:      ticker,
		}
	}

	// Only treat the suffix as an exchange when it is a known EODHD suffix so
	// that share classes such as BRK.B keep their dot.
	if idx := strings.LastIndex(ticker, "."); idx > 0 {
		if exchange, ok := suffixToExchange[strings.ToUpper(ticker[idx:])]; ok {
			return Ticker{
				Exchange: exchange,
				Code:     strings.ToUpper(ticker[:idx]),
				Raw:      ticker,
			}
		}
	}

	return Ticker{
		Exchange: DefaultExchange,
		Code:     strings.ToUpper(ticker),
		Raw:      ticker,
	}
}

// String returns the full exchange-qualified ticker string.
func (t Ticker) String() string {
	if t.Exchange == "" || t.Code == "" {
		return t.Code
	}
	return t.Exchange + ":" + t.Code
}

// EODHDSymbol returns the EODHD API symbol format.
// Example: "NASDAQ:AAPL" -> "AAPL.US", "NYSE:BRK.B" -> "BRK-B.US"
func (t Ticker) EODHDSymbol() string {
	if t.Code == "" {
		return ""
	}
	suffix, ok := ExchangeToSuffix[t.Exchange]
	if !ok {
		suffix = ".US"
	}
	return strings.ReplaceAll(t.Code, ".", "-") + suffix
}
