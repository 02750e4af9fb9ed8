package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Research
	// POST - a new query or an answer to a confirmation question
	mux.HandleFunc("/api/research", s.app.ResearchHandler.ResearchHandler)
	mux.HandleFunc("/api/conversations/", s.app.ResearchHandler.GetConversationHandler)

	// API routes - Analyses
	mux.HandleFunc("/api/analyses", s.app.AnalysisHandler.ListHandler)
	mux.HandleFunc("/api/analyses/", s.handleAnalysisRoutes) // /{id}, /{id}/status, /{id}/report.{md,html,pdf}

	// API routes - Housekeeping jobs
	mux.HandleFunc("/api/jobs", s.app.SchedulerHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes)

	// API routes - System
	mux.HandleFunc("/api/agents", s.app.APIHandler.AgentsHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleAnalysisRoutes routes /api/analyses/{id} and its subpaths
func (s *Server) handleAnalysisRoutes(w http.ResponseWriter, r *http.Request) {
	h := s.app.AnalysisHandler

	if r.Method == http.MethodGet && RouteByPathSuffix(w, r, "/api/analyses/", []PathSuffixRouter{
		{Suffix: "/status", Handler: h.StatusHandler},
		{Suffix: "/report.md", Handler: h.MarkdownReportHandler},
		{Suffix: "/report.html", Handler: h.HTMLReportHandler},
		{Suffix: "/report.pdf", Handler: h.PDFReportHandler},
	}) {
		return
	}

	// Only bare /api/analyses/{id} remains
	if strings.Contains(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/analyses/"), "/"), "/") {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	RouteResourceItem(w, r, h.GetHandler, nil, h.CancelHandler)
}

// handleJobRoutes routes /api/jobs/{name}/trigger
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/trigger") {
		RouteByMethod(w, r, MethodRouter{
			http.MethodPost: s.app.SchedulerHandler.TriggerJobHandler,
		})
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}
