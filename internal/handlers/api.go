package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
)

// APIHandler serves version, health and agent metadata
type APIHandler struct {
	logger arbor.ILogger
	agents interfaces.AgentLister
}

// NewAPIHandler creates an API handler. agents may be nil.
func NewAPIHandler(agents interfaces.AgentLister, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		logger: logger,
		agents: agents,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// AgentsHandler lists the analysis pipeline stages
func (h *APIHandler) AgentsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	agents := []interfaces.AgentDescriptor{}
	if h.agents != nil {
		agents = h.agents.Agents()
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"agents": agents,
		"count":  len(agents),
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
