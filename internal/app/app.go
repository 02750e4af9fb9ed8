package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/conversation"
	"github.com/ternarybob/tickerchat/internal/eodhd"
	"github.com/ternarybob/tickerchat/internal/handlers"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/orchestrator"
	"github.com/ternarybob/tickerchat/internal/resolver"
	"github.com/ternarybob/tickerchat/internal/services/correction"
	"github.com/ternarybob/tickerchat/internal/services/events"
	"github.com/ternarybob/tickerchat/internal/services/llm"
	"github.com/ternarybob/tickerchat/internal/services/pipeline"
	"github.com/ternarybob/tickerchat/internal/services/report"
	"github.com/ternarybob/tickerchat/internal/services/research"
	"github.com/ternarybob/tickerchat/internal/services/scheduler"
	"github.com/ternarybob/tickerchat/internal/storage/badger"
)

// shutdownGrace bounds how long Close waits for in-flight analyses.
const shutdownGrace = 10 * time.Second

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager *badger.Manager

	// Research flow
	Resolver          *resolver.Resolver
	LLMService        *llm.ProviderFactory
	CorrectionGateway interfaces.CorrectionGateway
	Conversations     *conversation.Store
	MarketData        *eodhd.Client
	Pipeline          *pipeline.Pipeline
	Orchestrator      *orchestrator.Orchestrator
	ResearchService   *research.Service
	ReportService     *report.Service

	// Event-driven services
	EventService     interfaces.EventService
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	ResearchHandler  *handlers.ResearchHandler
	AnalysisHandler  *handlers.AnalysisHandler
	SchedulerHandler *handlers.SchedulerHandler
	WSHandler        *handlers.WebSocketHandler
}

// New initializes the application with all dependencies. Anything opened
// before a failing step is released again.
func New(cfg *common.Config, logger arbor.ILogger) (_ *App, err error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err = app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if closeErr := app.Close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("Failed to release resources after initialization error")
		}
	}()

	app.EventService = events.NewService(app.Logger)
	if err = events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		return nil, fmt.Errorf("failed to subscribe event logger: %w", err)
	}

	if err = app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err = app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	logger.Info().
		Bool("llm_available", app.LLMService.Available()).
		Bool("market_data_configured", app.MarketData.Configured()).
		Int("directory_entries", app.Resolver.Directory().Len()).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = manager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Bool("in_memory", a.Config.Storage.Badger.InMemory).
		Msg("Storage layer initialized")
	return nil
}

// initServices builds the research flow bottom-up
func (a *App) initServices() error {
	var err error

	a.Resolver, err = resolver.NewFromConfig(&a.Config.Resolver)
	if err != nil {
		return fmt.Errorf("failed to build ticker directory: %w", err)
	}

	a.LLMService = llm.NewProviderFactory(a.Config, a.Logger)
	if !a.LLMService.Available() {
		a.Logger.Warn().Msg("No LLM API key configured - corrections use the local directory and syntheses will fail")
	}

	a.CorrectionGateway = correction.New(a.Config, a.LLMService, a.Resolver, a.Logger)

	ttl := common.ParseDurationOr(a.Config.Conversation.TTL, conversation.DefaultTTL)
	a.Conversations = conversation.NewStore(ttl, a.Logger)

	common.SetDefaultExchange(a.Config.EODHD.DefaultMarket)
	a.MarketData = eodhd.NewClientFromConfig(&a.Config.EODHD, a.Logger)
	if !a.MarketData.Configured() {
		a.Logger.Warn().Msg("No EODHD API key configured - insights are built without market data")
	}

	a.Pipeline = pipeline.NewFromConfig(a.MarketData, a.LLMService, a.Resolver, a.Config, a.Logger)
	a.Orchestrator = orchestrator.NewFromConfig(a.Pipeline, &a.Config.Orchestrator, a.Logger)

	a.ResearchService = research.NewService(
		a.Resolver,
		a.CorrectionGateway,
		a.Conversations,
		a.Orchestrator,
		a.StorageManager.AnalysisStorage(),
		a.EventService,
		a.Logger,
	)
	a.ReportService = report.NewService(a.Logger)

	sched := scheduler.NewService(a.Logger)
	if err := scheduler.RegisterHousekeeping(sched, a.Config, a.Conversations, a.StorageManager.AnalysisStorage(), a.Logger); err != nil {
		return fmt.Errorf("failed to register housekeeping jobs: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	a.SchedulerService = sched
	a.Logger.Debug().Msg("Scheduler service started")

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler(a.Pipeline, a.Logger)
	a.ResearchHandler = handlers.NewResearchHandler(a.ResearchService, a.Conversations, a.Logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.ResearchService, a.ReportService, a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, a.Logger)

	a.WSHandler = handlers.NewWebSocketHandler(a.Logger)
	if a.Config.WebSocket.Enabled {
		_ = handlers.NewEventSubscriber(a.WSHandler, a.EventService, a.Logger, &a.Config.WebSocket)
		a.Logger.Debug().
			Int("allowed_events", len(a.Config.WebSocket.AllowedEvents)).
			Int("throttle_intervals", len(a.Config.WebSocket.ThrottleIntervals)).
			Msg("EventSubscriber initialized")
	}

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	// Let async analyses record their final status before storage closes
	if a.ResearchService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		if err := a.ResearchService.Wait(ctx); err != nil {
			a.Logger.Warn().
				Int("cancelled", a.ResearchService.CancelAll()).
				Msg("Cancelling analyses still running at shutdown")
			cancel()
			ctx, cancel = context.WithTimeout(context.Background(), time.Second)
			_ = a.ResearchService.Wait(ctx)
		}
		cancel()
	}

	if a.Conversations != nil {
		a.Conversations.Close()
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
