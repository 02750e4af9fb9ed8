package pipeline

import (
	"math"
	"sort"

	"github.com/ternarybob/tickerchat/internal/eodhd"
)

const (
	trendUp       = "uptrend"
	trendDown     = "downtrend"
	trendSideways = "sideways"
	trendUnknown  = "insufficient data"

	swingWindow = 5
	maxLevels   = 3
	// Levels closer than this fraction are treated as one.
	levelTolerance = 0.01
)

// Technicals is the simple price summary handed to synthesis
type Technicals struct {
	Last          float64   `json:"last"`
	SMA20         float64   `json:"sma20,omitempty"`
	SMA50         float64   `json:"sma50,omitempty"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	ChangePercent float64   `json:"change_percent"`
	Trend         string    `json:"trend"`
	Support       []float64 `json:"support"`
	Resistance    []float64 `json:"resistance"`
}

// ComputeTechnicals derives trend and support/resistance from daily bars.
// Bars may arrive in any order.
func ComputeTechnicals(bars eodhd.EODResponse) Technicals {
	if len(bars) == 0 {
		return Technicals{Trend: trendUnknown}
	}

	sorted := append(eodhd.EODResponse(nil), bars...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	closes := sorted.Closes()

	t := Technicals{Last: closes[len(closes)-1]}
	t.Low, t.High = sorted.Range()
	if first := closes[0]; first != 0 {
		t.ChangePercent = round2((t.Last - first) / first * 100)
	}
	t.SMA20 = round2(sma(closes, 20))
	t.SMA50 = round2(sma(closes, 50))
	t.Trend = trend(t.Last, t.SMA20, t.SMA50, closes)

	lows, highs := swingPoints(sorted, swingWindow)
	t.Support = nearestLevels(lows, t.Last, true)
	t.Resistance = nearestLevels(highs, t.Last, false)
	return t
}

// sma is the mean of the last n values, or 0 when there are fewer.
func sma(values []float64, n int) float64 {
	if n <= 0 || len(values) < n {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n)
}

func trend(last, sma20, sma50 float64, closes []float64) string {
	switch {
	case sma20 == 0:
		return trendUnknown
	case sma50 == 0:
		// Short history: compare against the start of the window.
		switch {
		case last > sma20 && sma20 > closes[0]:
			return trendUp
		case last < sma20 && sma20 < closes[0]:
			return trendDown
		}
	case last > sma20 && sma20 > sma50:
		return trendUp
	case last < sma20 && sma20 < sma50:
		return trendDown
	}
	return trendSideways
}

// swingPoints returns bar lows and highs that are extremes of the window
// bars either side of them.
func swingPoints(bars eodhd.EODResponse, window int) (lows, highs []float64) {
	for i := window; i < len(bars)-window; i++ {
		isLow, isHigh := true, true
		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if bars[j].Low < bars[i].Low {
				isLow = false
			}
			if bars[j].High > bars[i].High {
				isHigh = false
			}
		}
		if isLow {
			lows = append(lows, bars[i].Low)
		}
		if isHigh {
			highs = append(highs, bars[i].High)
		}
	}
	return lows, highs
}

// nearestLevels keeps levels on the requested side of price, nearest first,
// merging levels within levelTolerance of each other.
func nearestLevels(levels []float64, price float64, below bool) []float64 {
	var side []float64
	for _, l := range levels {
		if (below && l < price) || (!below && l > price) {
			side = append(side, l)
		}
	}
	sort.Float64s(side)
	if below {
		sort.Sort(sort.Reverse(sort.Float64Slice(side)))
	}

	out := []float64{}
	for _, l := range side {
		if len(out) > 0 && math.Abs(l-out[len(out)-1]) <= out[len(out)-1]*levelTolerance {
			continue
		}
		out = append(out, round2(l))
		if len(out) == maxLevels {
			break
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
