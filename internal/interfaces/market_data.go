package interfaces

import (
	"context"

	"github.com/ternarybob/tickerchat/internal/eodhd"
)

// MarketDataProvider is the subset of the EODHD client used by the analysis
// pipeline. Symbols are in TICKER.EXCHANGE form.
type MarketDataProvider interface {
	GetFundamentals(ctx context.Context, symbol string) (*eodhd.FundamentalsResponse, error)
	GetEOD(ctx context.Context, symbol string, opts ...eodhd.QueryOption) (eodhd.EODResponse, error)
	GetRealTimeQuote(ctx context.Context, symbol string) (*eodhd.RealTimeQuote, error)
	GetNews(ctx context.Context, symbols []string, opts ...eodhd.QueryOption) (eodhd.NewsResponse, error)
}
