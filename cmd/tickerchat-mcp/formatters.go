package main

import (
	"fmt"
	"strings"

	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/ternarybob/tickerchat/internal/resolver"
	"github.com/ternarybob/tickerchat/internal/services/research"
)

// formatResolution renders resolved tickers and local suggestions
func formatResolution(resolution resolver.Resolution, suggestions map[string][]resolver.Suggestion) string {
	var b strings.Builder

	if len(resolution.Tickers) == 0 {
		b.WriteString("No tickers resolved.\n")
	} else {
		fmt.Fprintf(&b, "Resolved tickers: %s\n", strings.Join(resolution.Tickers, ", "))
	}

	if len(resolution.Unresolved) > 0 {
		b.WriteString("\nUnrecognized names:\n")
		for _, token := range resolution.Unresolved {
			fmt.Fprintf(&b, "- %s", token)
			if s := suggestions[token]; len(s) > 0 {
				options := make([]string, len(s))
				for i, suggestion := range s {
					options[i] = fmt.Sprintf("%s (%s)", suggestion.Name, suggestion.Ticker)
				}
				fmt.Fprintf(&b, ": maybe %s", strings.Join(options, ", "))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// formatResponse renders a research response that has no stored analysis
func formatResponse(resp *research.Response) string {
	if resp.NeedsConfirmation {
		return fmt.Sprintf("%s\n\n(conversation_id: %s)", resp.Question, resp.ConversationID)
	}
	if resp.Message != "" {
		return resp.Message
	}
	if resp.Results == nil {
		return fmt.Sprintf("Analysis %s is %s.", resp.AnalysisID, resp.Status)
	}

	var b strings.Builder
	for _, outcome := range resp.Results.Outcomes {
		if outcome.Succeeded() {
			fmt.Fprintf(&b, "## %s: %s\n\n%s\n\n", outcome.Ticker, strings.ToUpper(string(outcome.Insight.Stance)), outcome.Insight.Summary)
		} else if outcome.Failure != nil {
			fmt.Fprintf(&b, "## %s: unavailable\n\n%s\n\n", outcome.Ticker, outcome.Failure.Reason)
		}
	}
	return strings.TrimSpace(b.String())
}

// formatAnalysisList renders one line per analysis
func formatAnalysisList(records []*models.AnalysisRecord) string {
	if len(records) == 0 {
		return "No analyses found."
	}

	var b strings.Builder
	for _, record := range records {
		fmt.Fprintf(&b, "- %s [%s] %s: %s\n",
			record.ID,
			record.Status,
			record.StartedAt.Format("2006-01-02 15:04"),
			strings.Join(record.Tickers, ", "),
		)
	}
	return b.String()
}
