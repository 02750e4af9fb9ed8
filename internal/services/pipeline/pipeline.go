// Package pipeline implements the per-ticker analysis pipeline: gather
// fundamentals, news and price history from EODHD, summarise the price
// action and ask the LLM for a structured assessment.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/eodhd"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
)

const (
	DefaultHistoryDays = 365
	DefaultNewsLimit   = 10
	newsLookback       = 30 * 24 * time.Hour
	maxPromptArticles  = 5
)

// CompanyNamer supplies display names when fundamentals are unavailable
type CompanyNamer interface {
	CompanyName(ticker string) string
}

// Config tunes data gathering
type Config struct {
	HistoryDays int
	NewsLimit   int
	Model       string
}

// Pipeline is an interfaces.AnalysisPipeline backed by market data and an LLM
type Pipeline struct {
	market    interfaces.MarketDataProvider
	generator interfaces.ContentGenerator
	names     CompanyNamer
	config    Config
	validate  *validator.Validate
	logger    arbor.ILogger
	now       func() time.Time
}

var (
	_ interfaces.AnalysisPipeline = (*Pipeline)(nil)
	_ interfaces.AgentLister      = (*Pipeline)(nil)
)

// New creates a pipeline. names may be nil.
func New(market interfaces.MarketDataProvider, generator interfaces.ContentGenerator, names CompanyNamer, config Config, logger arbor.ILogger) *Pipeline {
	if config.HistoryDays <= 0 {
		config.HistoryDays = DefaultHistoryDays
	}
	if config.NewsLimit <= 0 {
		config.NewsLimit = DefaultNewsLimit
	}
	return &Pipeline{
		market:    market,
		generator: generator,
		names:     names,
		config:    config,
		validate:  validator.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// NewFromConfig wires the pipeline from the [eodhd] section.
func NewFromConfig(market interfaces.MarketDataProvider, generator interfaces.ContentGenerator, names CompanyNamer, config *common.Config, logger arbor.ILogger) *Pipeline {
	return New(market, generator, names, Config{
		HistoryDays: config.EODHD.HistoryDays,
		NewsLimit:   config.EODHD.NewsLimit,
	}, logger)
}

type article struct {
	title string
	body  string
}

// runState carries data between stages of one run
type runState struct {
	ticker string
	symbol string
	query  string

	fundamentals *eodhd.FundamentalsResponse
	news         eodhd.NewsResponse
	articles     []article
	bars         eodhd.EODResponse
	barCount     int
	technicals   *Technicals
	missing      []string

	insight *models.TickerInsight
}

// stage is one agent of the pipeline. Data stages may fail without failing
// the run; required stages may not.
type stage struct {
	name        string
	description string
	required    bool
	run         func(p *Pipeline, ctx context.Context, state *runState) (string, []models.SourceInfo, error)
}

var stages = []stage{
	{
		name:        "stock_info",
		description: "Company profile, valuation highlights and the latest quote",
		run:         (*Pipeline).stockInfo,
	},
	{
		name:        "news",
		description: "Recent news articles tagged with the ticker",
		run:         (*Pipeline).recentNews,
	},
	{
		name:        "price_history",
		description: "Daily price history for the configured lookback window",
		run:         (*Pipeline).priceHistory,
	},
	{
		name:        "technical_analysis",
		description: "Trend, 52 week range and support/resistance from swing points",
		run:         (*Pipeline).technicalAnalysis,
	},
	{
		name:        "synthesis",
		description: "LLM assessment with stance, confidence, drivers, risks and catalysts",
		required:    true,
		run:         (*Pipeline).synthesise,
	},
}

// Agents describes the pipeline stages in execution order.
func (p *Pipeline) Agents() []interfaces.AgentDescriptor {
	agents := make([]interfaces.AgentDescriptor, len(stages))
	for i, s := range stages {
		agents[i] = interfaces.AgentDescriptor{Name: s.name, Description: s.description, Order: i + 1}
	}
	return agents
}

// Run produces an insight for ticker. Cancellation of ctx between stages is
// returned as ctx.Err() so the caller can tell timeouts from failures.
func (p *Pipeline) Run(ctx context.Context, ticker string, query string) (*models.TickerInsight, error) {
	started := p.now()
	state := &runState{
		ticker: ticker,
		symbol: common.ParseTicker(ticker).EODHDSymbol(),
		query:  query,
		insight: &models.TickerInsight{
			Ticker:           ticker,
			CompanyName:      p.companyName(ticker),
			SupportLevels:    []float64{},
			ResistanceLevels: []float64{},
			KeyDrivers:       []string{},
			Risks:            []string{},
			Catalysts:        []string{},
			Sources:          []models.SourceInfo{},
		},
	}

	gathered := 0
	for i, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.required && gathered == 0 {
			return nil, fmt.Errorf("%w: no market data available for %s", interfaces.ErrPipelineFailure, ticker)
		}

		stepStart := p.now()
		observation, sources, err := s.run(p, ctx, state)
		elapsed := p.now().Sub(stepStart)

		trace := models.AgentTrace{
			AgentType: s.name,
			Ticker:    ticker,
			Steps: []models.AgentStep{{
				StepNumber:  i + 1,
				Thought:     s.description,
				Action:      s.name,
				Observation: observation,
				Sources:     sources,
				Timestamp:   stepStart,
				LatencyMs:   float64(elapsed.Microseconds()) / 1000,
			}},
			TotalLatencyMs: float64(elapsed.Microseconds()) / 1000,
			Success:        err == nil,
		}
		if err != nil {
			trace.ErrorMessage = err.Error()
		}
		state.insight.AgentTraces = append(state.insight.AgentTraces, trace)
		state.insight.Sources = append(state.insight.Sources, sources...)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if s.required {
				return nil, err
			}
			state.missing = append(state.missing, s.name)
			p.logger.Warn().
				Str("ticker", ticker).
				Str("stage", s.name).
				Err(err).
				Msg("Pipeline stage failed, continuing without it")
			continue
		}
		if !s.required {
			gathered++
		}
	}

	state.insight.AnalysisTimestamp = p.now().UTC()
	p.logger.Info().
		Str("ticker", ticker).
		Str("stance", string(state.insight.Stance)).
		Int("sources", len(state.insight.Sources)).
		Dur("elapsed", p.now().Sub(started)).
		Msg("Pipeline completed")
	return state.insight, nil
}

func (p *Pipeline) companyName(ticker string) string {
	if p.names == nil {
		return ticker
	}
	return p.names.CompanyName(ticker)
}

func (p *Pipeline) stockInfo(ctx context.Context, state *runState) (string, []models.SourceInfo, error) {
	f, err := p.market.GetFundamentals(ctx, state.symbol)
	if err != nil {
		return "", nil, fmt.Errorf("fundamentals for %s: %w", state.symbol, err)
	}
	state.fundamentals = f
	insight := state.insight

	if f.General != nil && f.General.Name != "" {
		insight.CompanyName = f.General.Name
	}
	if h := f.Highlights; h != nil {
		insight.MarketCap = positive(h.MarketCapitalization)
		insight.PERatio = positive(h.PERatio)
	}
	if t := f.Technicals; t != nil {
		insight.FiftyTwoWeekHigh = positive(t.FiftyTwoWeekHigh)
		insight.FiftyTwoWeekLow = positive(t.FiftyTwoWeekLow)
	}

	// The quote is best effort; price history backfills it.
	if quote, err := p.market.GetRealTimeQuote(ctx, state.symbol); err == nil {
		insight.CurrentPrice = positive(quote.Close)
	} else {
		p.logger.Debug().Str("symbol", state.symbol).Err(err).Msg("Real-time quote unavailable")
	}

	observation := fmt.Sprintf("Loaded fundamentals for %s", insight.CompanyName)
	if insight.CurrentPrice != nil {
		observation += fmt.Sprintf(", last price %.2f", *insight.CurrentPrice)
	}
	return observation, nil, nil
}

func (p *Pipeline) recentNews(ctx context.Context, state *runState) (string, []models.SourceInfo, error) {
	news, err := p.market.GetNews(ctx, []string{state.symbol},
		eodhd.WithLimit(p.config.NewsLimit), eodhd.WithLookback(newsLookback))
	if err != nil {
		return "", nil, fmt.Errorf("news for %s: %w", state.symbol, err)
	}
	state.news = news

	for _, item := range news {
		if len(state.articles) == maxPromptArticles {
			break
		}
		if item.Content == "" {
			continue
		}
		state.articles = append(state.articles, article{title: item.Title, body: articleMarkdown(item.Content, item.Link)})
	}

	sources := newsSources(news, p.now().UTC())
	return fmt.Sprintf("Found %d articles", len(news)), sources, nil
}

func (p *Pipeline) priceHistory(ctx context.Context, state *runState) (string, []models.SourceInfo, error) {
	lookback := time.Duration(p.config.HistoryDays) * 24 * time.Hour
	bars, err := p.market.GetEOD(ctx, state.symbol, eodhd.WithLookback(lookback))
	if err != nil {
		return "", nil, fmt.Errorf("price history for %s: %w", state.symbol, err)
	}
	if len(bars) == 0 {
		return "", nil, fmt.Errorf("no price history for %s", state.symbol)
	}
	state.bars = bars
	state.barCount = len(bars)
	return fmt.Sprintf("Loaded %d daily bars", len(bars)), nil, nil
}

var errNoPriceHistory = errors.New("no price history to analyse")

func (p *Pipeline) technicalAnalysis(ctx context.Context, state *runState) (string, []models.SourceInfo, error) {
	if len(state.bars) == 0 {
		return "", nil, errNoPriceHistory
	}
	t := ComputeTechnicals(state.bars)
	state.technicals = &t
	insight := state.insight

	insight.Trend = t.Trend
	insight.SupportLevels = t.Support
	insight.ResistanceLevels = t.Resistance
	if insight.CurrentPrice == nil {
		insight.CurrentPrice = positive(t.Last)
	}
	if insight.FiftyTwoWeekHigh == nil {
		insight.FiftyTwoWeekHigh = positive(t.High)
	}
	if insight.FiftyTwoWeekLow == nil {
		insight.FiftyTwoWeekLow = positive(t.Low)
	}
	return fmt.Sprintf("Trend %s, %d support and %d resistance levels", t.Trend, len(t.Support), len(t.Resistance)), nil, nil
}

func (p *Pipeline) synthesise(ctx context.Context, state *runState) (string, []models.SourceInfo, error) {
	if p.generator == nil || !p.generator.Available() {
		return "", nil, fmt.Errorf("%w: no LLM configured for synthesis", interfaces.ErrPipelineFailure)
	}

	text, err := p.generator.Generate(ctx, &interfaces.GenerateRequest{
		Messages:          []interfaces.Message{{Role: "user", Content: buildSynthesisPrompt(state)}},
		Model:             p.config.Model,
		SystemInstruction: synthesisPrompt,
		Temperature:       0.2,
		OutputSchema:      synthesisSchema,
	})
	if err != nil {
		return "", nil, fmt.Errorf("%w: synthesis: %v", interfaces.ErrPipelineFailure, err)
	}

	out, err := parseSynthesis(p.validate, text)
	if err != nil {
		return "", nil, err
	}
	out.apply(state.insight)
	return fmt.Sprintf("Stance %s with %s confidence", out.Stance, out.Confidence), nil, nil
}

func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
