package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/tickerchat/internal/app"
	"github.com/ternarybob/tickerchat/internal/common"
)

func main() {
	configPath := os.Getenv("TICKERCHAT_CONFIG")
	if configPath == "" {
		configPath = "tickerchat.toml"
	}

	var paths []string
	if _, err := os.Stat(configPath); err == nil {
		paths = append(paths, configPath)
	}
	config, err := common.LoadFromFiles(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr at warn so they never mix with the stdio protocol
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	application, err := app.New(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	mcpServer := server.NewMCPServer(
		"tickerchat",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createResolveTickersTool(), handleResolveTickers(application.Resolver))
	mcpServer.AddTool(createResearchStocksTool(), handleResearchStocks(application.ResearchService, application.ReportService, logger))
	mcpServer.AddTool(createGetAnalysisTool(), handleGetAnalysis(application.ResearchService, application.ReportService, logger))
	mcpServer.AddTool(createListAnalysesTool(), handleListAnalyses(application.ResearchService, logger))

	// Blocks on stdio
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
	}
}
