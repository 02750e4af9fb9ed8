package eodhd

import (
	"math"
	"time"
)

// EODData is one bar of end-of-day prices.
type EODData struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
}

// EODResponse is a price series, oldest first unless queried otherwise.
type EODResponse []EODData

// Latest returns the most recent bar by date.
func (r EODResponse) Latest() (EODData, bool) {
	if len(r) == 0 {
		return EODData{}, false
	}
	latest := r[0]
	for _, bar := range r[1:] {
		if bar.Date.After(latest.Date) {
			latest = bar
		}
	}
	return latest, true
}

// Range returns the lowest low and highest high in the series.
func (r EODResponse) Range() (low, high float64) {
	if len(r) == 0 {
		return 0, 0
	}
	low, high = math.Inf(1), math.Inf(-1)
	for _, bar := range r {
		low = math.Min(low, bar.Low)
		high = math.Max(high, bar.High)
	}
	return low, high
}

// Closes returns closing prices in series order.
func (r EODResponse) Closes() []float64 {
	closes := make([]float64, len(r))
	for i, bar := range r {
		closes[i] = bar.Close
	}
	return closes
}

// RealTimeQuote is the delayed quote returned by /real-time.
type RealTimeQuote struct {
	Code          string  `json:"code"`
	Timestamp     int64   `json:"timestamp"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        int64   `json:"volume"`
	PreviousClose float64 `json:"previousClose"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_p"`
}

// NewsItem is a single news article.
type NewsItem struct {
	Date      time.Time      `json:"-"`
	DateStr   string         `json:"date"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Link      string         `json:"link"`
	Symbols   []string       `json:"symbols"`
	Tags      []string       `json:"tags"`
	Sentiment *NewsSentiment `json:"sentiment,omitempty"`
}

// NewsSentiment is the API's polarity score for an article.
type NewsSentiment struct {
	Polarity float64 `json:"polarity"`
	Neg      float64 `json:"neg"`
	Neu      float64 `json:"neu"`
	Pos      float64 `json:"pos"`
}

// NewsResponse is a list of articles, newest first.
type NewsResponse []NewsItem

// FundamentalsResponse holds the fundamentals sections the pipeline reads.
// The API returns many more; unknown sections are ignored when decoding.
type FundamentalsResponse struct {
	General        *GeneralInfo    `json:"General"`
	Highlights     *Highlights     `json:"Highlights"`
	Valuation      *Valuation      `json:"Valuation"`
	Technicals     *Technicals     `json:"Technicals"`
	AnalystRatings *AnalystRatings `json:"AnalystRatings"`
}

// GeneralInfo contains general company information.
type GeneralInfo struct {
	Code         string `json:"Code"`
	Type         string `json:"Type"`
	Name         string `json:"Name"`
	Exchange     string `json:"Exchange"`
	CurrencyCode string `json:"CurrencyCode"`
	CountryName  string `json:"CountryName"`
	Sector       string `json:"Sector"`
	Industry     string `json:"Industry"`
	Description  string `json:"Description"`
	WebURL       string `json:"WebURL"`
	IsDelisted   bool   `json:"IsDelisted"`
}

// Highlights contains key financial highlights.
type Highlights struct {
	MarketCapitalization       float64 `json:"MarketCapitalization"`
	EBITDA                     float64 `json:"EBITDA"`
	PERatio                    float64 `json:"PERatio"`
	PEGRatio                   float64 `json:"PEGRatio"`
	WallStreetTargetPrice      float64 `json:"WallStreetTargetPrice"`
	DividendYield              float64 `json:"DividendYield"`
	EarningsShare              float64 `json:"EarningsShare"`
	ProfitMargin               float64 `json:"ProfitMargin"`
	RevenueTTM                 float64 `json:"RevenueTTM"`
	QuarterlyRevenueGrowthYOY  float64 `json:"QuarterlyRevenueGrowthYOY"`
	QuarterlyEarningsGrowthYOY float64 `json:"QuarterlyEarningsGrowthYOY"`
}

// Valuation contains valuation metrics.
type Valuation struct {
	TrailingPE    float64 `json:"TrailingPE"`
	ForwardPE     float64 `json:"ForwardPE"`
	PriceSalesTTM float64 `json:"PriceSalesTTM"`
	PriceBookMRQ  float64 `json:"PriceBookMRQ"`
}

// Technicals contains the API's precomputed technical figures.
type Technicals struct {
	Beta             float64 `json:"Beta"`
	FiftyTwoWeekHigh float64 `json:"52WeekHigh"`
	FiftyTwoWeekLow  float64 `json:"52WeekLow"`
	FiftyDayMA       float64 `json:"50DayMA"`
	TwoHundredDayMA  float64 `json:"200DayMA"`
}

// AnalystRatings contains consensus analyst ratings.
type AnalystRatings struct {
	Rating      float64 `json:"Rating"`
	TargetPrice float64 `json:"TargetPrice"`
	StrongBuy   int     `json:"StrongBuy"`
	Buy         int     `json:"Buy"`
	Hold        int     `json:"Hold"`
	Sell        int     `json:"Sell"`
	StrongSell  int     `json:"StrongSell"`
}
