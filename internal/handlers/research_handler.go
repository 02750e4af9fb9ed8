package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/services/research"
)

// ResearchHandler serves the research entry point and conversation reads
type ResearchHandler struct {
	research      Researcher
	conversations ConversationReader
	logger        arbor.ILogger
}

// NewResearchHandler creates a research handler
func NewResearchHandler(r Researcher, conversations ConversationReader, logger arbor.ILogger) *ResearchHandler {
	return &ResearchHandler{
		research:      r,
		conversations: conversations,
		logger:        logger,
	}
}

// ResearchHandler handles POST /api/research. Mid-dialogue responses carry
// needs_confirmation and a question; final responses carry results, with
// HTTP 200 even when some tickers failed.
func (h *ResearchHandler) ResearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req research.Request
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	resp, err := h.research.Handle(r.Context(), req)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if req.Async && resp.AnalysisID != "" && resp.Results == nil {
		status = http.StatusAccepted
	}
	WriteJSON(w, status, resp)
}

// GetConversationHandler handles GET /api/conversations/{id}
func (h *ResearchHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/conversations/"), "/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Conversation ID is required")
		return
	}
	if !common.IsConversationID(id) {
		WriteError(w, http.StatusBadRequest, "Invalid conversation ID: "+id)
		return
	}

	conv, err := h.conversations.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, conv)
}
