package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/ternarybob/tickerchat/internal/services/llm"
)

const synthesisPrompt = `You are an equity research analyst. Using only the data provided, write a concise
assessment of the stock for a retail investor. Do not invent figures that are not in the data.
If the data is thin, say so and lower your confidence.

Respond with a JSON object containing:
- "summary": two to four sentences answering the user's request
- "key_drivers": up to five factors currently moving the stock
- "risks": up to five material risks
- "catalysts": up to five upcoming events or developments
- "stance": one of "buy", "hold", "sell"
- "confidence": one of "high", "medium", "low"
- "rationale": one or two sentences justifying the stance`

var synthesisSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"summary":     map[string]interface{}{"type": "string"},
		"key_drivers": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"risks":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"catalysts":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"stance":      map[string]interface{}{"type": "string", "enum": []string{"buy", "hold", "sell"}},
		"confidence":  map[string]interface{}{"type": "string", "enum": []string{"high", "medium", "low"}},
		"rationale":   map[string]interface{}{"type": "string"},
	},
	"required": []string{"summary", "key_drivers", "risks", "catalysts", "stance", "confidence", "rationale"},
}

// synthesisOutput is the model's JSON answer
type synthesisOutput struct {
	Summary    string   `json:"summary" validate:"required"`
	KeyDrivers []string `json:"key_drivers" validate:"max=10,dive,required"`
	Risks      []string `json:"risks" validate:"max=10,dive,required"`
	Catalysts  []string `json:"catalysts" validate:"max=10,dive,required"`
	Stance     string   `json:"stance" validate:"required,oneof=buy hold sell"`
	Confidence string   `json:"confidence" validate:"required,oneof=high medium low"`
	Rationale  string   `json:"rationale" validate:"required"`
}

// parseSynthesis decodes and validates model output. Any problem is reported
// as ErrMalformedInsight.
func parseSynthesis(validate *validator.Validate, text string) (*synthesisOutput, error) {
	var out synthesisOutput
	if err := json.Unmarshal([]byte(llm.CleanJSON(text)), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedInsight, err)
	}
	out.Stance = strings.ToLower(strings.TrimSpace(out.Stance))
	out.Confidence = strings.ToLower(strings.TrimSpace(out.Confidence))
	if err := validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedInsight, err)
	}
	return &out, nil
}

func (o *synthesisOutput) apply(insight *models.TickerInsight) {
	insight.Summary = strings.TrimSpace(o.Summary)
	insight.KeyDrivers = nonNil(o.KeyDrivers)
	insight.Risks = nonNil(o.Risks)
	insight.Catalysts = nonNil(o.Catalysts)
	insight.Stance = models.Stance(o.Stance)
	insight.Confidence = models.ParseConfidenceTier(o.Confidence)
	insight.Rationale = strings.TrimSpace(o.Rationale)
}

// buildSynthesisPrompt lays out everything the data stages gathered.
func buildSynthesisPrompt(state *runState) string {
	var b strings.Builder
	insight := state.insight

	fmt.Fprintf(&b, "User request: %s\n\n", state.query)
	fmt.Fprintf(&b, "## %s (%s)\n", insight.CompanyName, insight.Ticker)

	if f := state.fundamentals; f != nil && f.General != nil {
		fmt.Fprintf(&b, "Sector: %s / %s\n", f.General.Sector, f.General.Industry)
		if f.General.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", truncate(f.General.Description, 600))
		}
	}
	writeFigure(&b, "Current price", insight.CurrentPrice)
	writeFigure(&b, "Market cap", insight.MarketCap)
	writeFigure(&b, "P/E ratio", insight.PERatio)
	writeFigure(&b, "52 week high", insight.FiftyTwoWeekHigh)
	writeFigure(&b, "52 week low", insight.FiftyTwoWeekLow)

	if f := state.fundamentals; f != nil {
		if h := f.Highlights; h != nil {
			fmt.Fprintf(&b, "Revenue TTM: %.0f, profit margin: %.2f%%, quarterly revenue growth YoY: %.2f%%\n",
				h.RevenueTTM, h.ProfitMargin*100, h.QuarterlyRevenueGrowthYOY*100)
			if h.WallStreetTargetPrice > 0 {
				fmt.Fprintf(&b, "Analyst target price: %.2f\n", h.WallStreetTargetPrice)
			}
		}
		if r := f.AnalystRatings; r != nil && r.Rating > 0 {
			fmt.Fprintf(&b, "Analyst ratings: %.1f/5 (strong buy %d, buy %d, hold %d, sell %d, strong sell %d)\n",
				r.Rating, r.StrongBuy, r.Buy, r.Hold, r.Sell, r.StrongSell)
		}
	}

	if t := state.technicals; t != nil {
		fmt.Fprintf(&b, "\n### Technicals (%d trading days)\n", state.barCount)
		fmt.Fprintf(&b, "Trend: %s, change over period: %.2f%%\n", t.Trend, t.ChangePercent)
		if t.SMA20 > 0 {
			fmt.Fprintf(&b, "SMA20: %.2f", t.SMA20)
			if t.SMA50 > 0 {
				fmt.Fprintf(&b, ", SMA50: %.2f", t.SMA50)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Support: %s\nResistance: %s\n", formatLevels(t.Support), formatLevels(t.Resistance))
	}

	if len(state.articles) > 0 {
		b.WriteString("\n### Recent news\n")
		if polarity, ok := averagePolarity(state.news); ok {
			fmt.Fprintf(&b, "Average sentiment polarity: %.2f\n", polarity)
		}
		for _, article := range state.articles {
			fmt.Fprintf(&b, "\n#### %s\n%s\n", article.title, article.body)
		}
	}

	if len(state.missing) > 0 {
		fmt.Fprintf(&b, "\nUnavailable data: %s\n", strings.Join(state.missing, ", "))
	}
	return b.String()
}

func writeFigure(b *strings.Builder, label string, value *float64) {
	if value != nil {
		fmt.Fprintf(b, "%s: %.2f\n", label, *value)
	}
}

func formatLevels(levels []float64) string {
	if len(levels) == 0 {
		return "none identified"
	}
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%.2f", l)
	}
	return strings.Join(parts, ", ")
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
