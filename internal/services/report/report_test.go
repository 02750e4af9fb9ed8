package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/models"
)

func ptr(v float64) *float64 { return &v }

func sampleRecord() *models.AnalysisRecord {
	completed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	published := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return &models.AnalysisRecord{
		ID:          "ana_report",
		Query:       "Compare microsoft and amazon",
		Tickers:     []string{"MSFT", "AMZN"},
		Status:      models.AnalysisCompleted,
		StartedAt:   completed.Add(-time.Minute),
		CompletedAt: &completed,
		Result: &models.OrchestrationResult{
			PartialFailure: true,
			Outcomes: []models.PipelineOutcome{
				{
					Ticker: "MSFT",
					Insight: &models.TickerInsight{
						Ticker:           "MSFT",
						CompanyName:      "Microsoft Corporation",
						CurrentPrice:     ptr(415.2),
						MarketCap:        ptr(3.1e12),
						PERatio:          ptr(35.4),
						SupportLevels:    []float64{400, 390.5},
						ResistanceLevels: []float64{430},
						Trend:            "uptrend",
						Summary:          "Cloud growth remains strong, Azure up 30% in Zürich.",
						KeyDrivers:       []string{"Azure growth"},
						Risks:            []string{"Regulation"},
						Catalysts:        []string{"Earnings in April"},
						Stance:           models.StanceBuy,
						Confidence:       models.ConfidenceMedium,
						Rationale:        "Momentum and margins.",
						Sources: []models.SourceInfo{
							{URL: "https://example.com/msft", Title: "Microsoft beats", PublishedAt: &published},
						},
					},
				},
				{
					Ticker:  "AMZN",
					Failure: &models.Failure{Ticker: "AMZN", Reason: "analysis pipeline timed out", Kind: models.FailureTimeout},
				},
			},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleRecord())

	assert.Contains(t, md, "# Research report: MSFT, AMZN")
	assert.Contains(t, md, "## Microsoft Corporation (MSFT)")
	assert.Contains(t, md, "**Stance:** BUY (medium confidence)")
	assert.Contains(t, md, "| Market cap | $3.10T |")
	assert.Contains(t, md, "| Support | 400.00, 390.50 |")
	assert.Contains(t, md, "### Risks\n\n- Regulation\n")
	assert.Contains(t, md, "- [Microsoft beats](https://example.com/msft) (2026-03-01)")
	assert.Contains(t, md, "- **AMZN** (timeout): analysis pipeline timed out")
	assert.Contains(t, md, "results above are partial")
	// One successful insight, so no overview table.
	assert.NotContains(t, md, "## Overview")
}

func TestMarkdown_InProgress(t *testing.T) {
	md := Markdown(&models.AnalysisRecord{
		ID:       "ana_run",
		Query:    "Analyze AAPL",
		Tickers:  []string{"AAPL"},
		Status:   models.AnalysisProcessing,
		Progress: 0.5,
	})
	assert.Contains(t, md, "Analysis in progress: 50% complete.")
}

func TestService_HTML(t *testing.T) {
	service := NewService(arbor.NewLogger())
	out, err := service.HTML(sampleRecord())
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, `<a href="https://example.com/msft">Microsoft beats</a>`)
}

func TestService_PDF(t *testing.T) {
	service := NewService(arbor.NewLogger())

	tests := []struct {
		name   string
		record *models.AnalysisRecord
	}{
		{name: "completed", record: sampleRecord()},
		{name: "empty", record: &models.AnalysisRecord{ID: "ana_empty", Status: models.AnalysisFailed, Error: "all pipelines failed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := service.PDF(tt.record)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
		})
	}
}
