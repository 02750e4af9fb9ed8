package pipeline

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/tickerchat/internal/eodhd"
)

func TestComputeTechnicals_Empty(t *testing.T) {
	got := ComputeTechnicals(nil)
	assert.Equal(t, trendUnknown, got.Trend)
}

func TestComputeTechnicals_Uptrend(t *testing.T) {
	got := ComputeTechnicals(rising(60))

	assert.Equal(t, trendUp, got.Trend)
	assert.Equal(t, 159.0, got.Last)
	assert.Equal(t, 96.0, got.Low)
	assert.Equal(t, 160.0, got.High)
	assert.Greater(t, got.ChangePercent, 50.0)
	assert.Greater(t, got.SMA20, got.SMA50)
	// Swing lows at every dip, nearest first.
	assert.Equal(t, []float64{136, 126, 116}, got.Support)
	assert.Empty(t, got.Resistance)
}

func TestComputeTechnicals_OrderIndependent(t *testing.T) {
	bars := rising(60)
	reversed := make(eodhd.EODResponse, len(bars))
	for i, bar := range bars {
		reversed[len(bars)-1-i] = bar
	}
	assert.Equal(t, ComputeTechnicals(bars), ComputeTechnicals(reversed))
}

func TestComputeTechnicals_Downtrend(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make(eodhd.EODResponse, 60)
	for i := range bars {
		price := 200 - float64(i)
		bars[i] = eodhd.EODData{Date: start.AddDate(0, 0, i), High: price + 1, Low: price - 1, Close: price}
	}
	got := ComputeTechnicals(bars)
	assert.Equal(t, trendDown, got.Trend)
}

func TestComputeTechnicals_ShortHistory(t *testing.T) {
	got := ComputeTechnicals(rising(10))
	assert.Equal(t, trendUnknown, got.Trend)
	assert.Zero(t, got.SMA20)
}

func TestNearestLevels(t *testing.T) {
	levels := []float64{90, 95, 95.5, 80, 110, 120, 111}
	assert.Equal(t, []float64{95.5, 90, 80}, nearestLevels(levels, 100, true))
	assert.Equal(t, []float64{110, 120}, nearestLevels(levels, 100, false))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "the quick brown...", truncate("the quick brown fox jumps", 18))
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	got := truncate("株式市場の見通し", 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "株式市...", got)

	got = truncate("Zürich-based insurer Zürich", 2)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "Z...", got)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hello world", plainText("<div><p>Hello</p>\n<p>world</p><style>p{}</style></div>"))
	assert.Equal(t, "plain text", plainText("plain   text"))
}
