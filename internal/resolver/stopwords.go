package resolver

import "strings"

// stopwords are never treated as company names or tickers, in any case.
var stopwords = toSet(
	// general English
	"a", "i", "me", "my", "we", "us", "our", "you", "your", "it", "its", "he", "she", "him", "her", "them",
	"the", "an", "and", "or", "but", "not", "no", "yes", "so", "if", "of", "to", "in", "on", "at", "by",
	"for", "from", "as", "with", "into", "over", "under", "up", "down", "out", "about", "than", "then",
	"now", "is", "are", "was", "were", "be", "been", "has", "have", "had", "do", "does", "did", "can",
	"could", "should", "would", "will", "what", "whats", "what's", "who", "which", "when", "where", "why",
	"how", "this", "that", "these", "those", "there", "their", "all", "any", "some", "one", "two", "three",
	"also", "just", "only", "even", "well", "way", "back", "after", "before", "other", "more", "most",
	"get", "give", "go", "make", "take", "know", "see", "look", "looking", "like", "want", "think", "use",
	"work", "come", "time", "people", "new", "good", "best", "first", "because", "please", "thanks", "hi",
	"hello", "hey", "tell", "show", "let", "lets", "let's", "i'm", "im", "between", "against", "versus", "vs",
	"via", "per", "each", "both", "same", "ok", "okay",

	// research vocabulary
	"analyze", "analyse", "analysis", "compare", "comparison", "research", "review", "report", "summary",
	"stock", "stocks", "share", "shares", "equity", "ticker", "tickers", "company", "companies",
	"price", "prices", "outlook", "forecast", "trend", "trends", "news", "performance", "earnings",
	"revenue", "valuation", "dividend", "dividends", "buy", "sell", "hold", "invest", "investing",
	"investment", "portfolio", "market", "markets", "sector", "doing", "recent", "recently", "latest",
	"current", "today", "long", "short", "term", "risk", "risks", "worth",

	// periods
	"day", "days", "week", "weeks", "month", "months", "quarter", "quarters", "quarterly", "year", "years",
	"next", "last", "past", "ytd", "annual", "daily", "weekly", "monthly",

	// uppercase acronyms that look like tickers
	"ai", "ceo", "cfo", "ipo", "etf", "eps", "pe", "usd", "aud", "eur", "gdp", "api", "faq",
)

func isStopword(s string) bool {
	return stopwords[strings.ToLower(s)]
}

func toSet(values ...string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
