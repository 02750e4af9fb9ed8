// Package report renders stored analyses as markdown, HTML and PDF.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/tickerchat/internal/models"
)

// Markdown renders record as a markdown report.
func Markdown(record *models.AnalysisRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research report: %s\n\n", strings.Join(record.Tickers, ", "))
	fmt.Fprintf(&b, "**Request:** %s\n\n", record.Query)
	fmt.Fprintf(&b, "**Status:** %s", record.Status)
	if record.CompletedAt != nil {
		fmt.Fprintf(&b, " (%s)", record.CompletedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("\n\n")

	if record.Result == nil {
		if record.Status == models.AnalysisProcessing {
			fmt.Fprintf(&b, "Analysis in progress: %.0f%% complete.\n", record.Progress*100)
		}
		if record.Error != "" {
			fmt.Fprintf(&b, "Error: %s\n", record.Error)
		}
		return b.String()
	}

	insights := record.Result.Insights()
	if len(insights) > 1 {
		writeOverview(&b, insights)
	}
	for _, insight := range insights {
		writeInsight(&b, insight)
	}

	if failures := record.Result.Failures(); len(failures) > 0 {
		b.WriteString("## Unavailable\n\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", f.Ticker, f.Kind, f.Reason)
		}
		b.WriteString("\n")
	}
	if record.Result.PartialFailure {
		b.WriteString("*Some tickers could not be analyzed; results above are partial.*\n")
	}
	return b.String()
}

func writeOverview(b *strings.Builder, insights []*models.TickerInsight) {
	b.WriteString("## Overview\n\n")
	b.WriteString("| Ticker | Price | Trend | Stance | Confidence |\n")
	b.WriteString("|--------|-------|-------|--------|------------|\n")
	for _, in := range insights {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			in.Ticker, money(in.CurrentPrice), orDash(in.Trend), in.Stance, in.Confidence)
	}
	b.WriteString("\n")
}

func writeInsight(b *strings.Builder, in *models.TickerInsight) {
	if in.CompanyName != "" && in.CompanyName != in.Ticker {
		fmt.Fprintf(b, "## %s (%s)\n\n", in.CompanyName, in.Ticker)
	} else {
		fmt.Fprintf(b, "## %s\n\n", in.Ticker)
	}

	fmt.Fprintf(b, "**Stance:** %s (%s confidence)\n\n", strings.ToUpper(string(in.Stance)), in.Confidence)
	if in.Summary != "" {
		b.WriteString(in.Summary + "\n\n")
	}

	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(b, "| Price | %s |\n", money(in.CurrentPrice))
	fmt.Fprintf(b, "| Market cap | %s |\n", largeMoney(in.MarketCap))
	fmt.Fprintf(b, "| P/E | %s |\n", number(in.PERatio))
	fmt.Fprintf(b, "| 52-week high | %s |\n", money(in.FiftyTwoWeekHigh))
	fmt.Fprintf(b, "| 52-week low | %s |\n", money(in.FiftyTwoWeekLow))
	fmt.Fprintf(b, "| Trend | %s |\n", orDash(in.Trend))
	fmt.Fprintf(b, "| Support | %s |\n", levels(in.SupportLevels))
	fmt.Fprintf(b, "| Resistance | %s |\n\n", levels(in.ResistanceLevels))

	writeList(b, "Key drivers", in.KeyDrivers)
	writeList(b, "Risks", in.Risks)
	writeList(b, "Catalysts", in.Catalysts)

	if in.Rationale != "" {
		fmt.Fprintf(b, "### Rationale\n\n%s\n\n", in.Rationale)
	}

	if len(in.Sources) > 0 {
		b.WriteString("### Sources\n\n")
		for _, s := range in.Sources {
			title := s.Title
			if title == "" {
				title = s.URL
			}
			if s.PublishedAt != nil {
				fmt.Fprintf(b, "- [%s](%s) (%s)\n", title, s.URL, s.PublishedAt.Format("2006-01-02"))
			} else {
				fmt.Fprintf(b, "- [%s](%s)\n", title, s.URL)
			}
		}
		b.WriteString("\n")
	}

	if !in.AnalysisTimestamp.IsZero() {
		fmt.Fprintf(b, "*Analyzed %s*\n\n", in.AnalysisTimestamp.UTC().Format(time.RFC1123))
	}
	b.WriteString("---\n\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func money(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func number(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func largeMoney(v *float64) string {
	if v == nil {
		return "-"
	}
	switch x := *v; {
	case x >= 1e12:
		return fmt.Sprintf("$%.2fT", x/1e12)
	case x >= 1e9:
		return fmt.Sprintf("$%.2fB", x/1e9)
	case x >= 1e6:
		return fmt.Sprintf("$%.2fM", x/1e6)
	default:
		return fmt.Sprintf("$%.0f", x)
	}
}

func levels(values []float64) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.2f", v)
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
