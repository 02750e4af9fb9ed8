package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
)

const analysesPrefix = "/api/analyses/"

// AnalysisHandler serves stored analyses and their reports
type AnalysisHandler struct {
	research Researcher
	reports  ReportRenderer
	logger   arbor.ILogger
}

// NewAnalysisHandler creates an analysis handler
func NewAnalysisHandler(r Researcher, reports ReportRenderer, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		research: r,
		reports:  reports,
		logger:   logger,
	}
}

// AnalysisID extracts the id from /api/analyses/{id}[/suffix].
func AnalysisID(path string) string {
	rest := strings.TrimPrefix(path, analysesPrefix)
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// requireAnalysisID extracts the id from the path and rejects malformed ones
// before they reach storage.
func requireAnalysisID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := AnalysisID(r.URL.Path)
	switch {
	case id == "":
		WriteError(w, http.StatusBadRequest, "Analysis ID is required")
		return "", false
	case !common.IsAnalysisID(id):
		WriteError(w, http.StatusBadRequest, "Invalid analysis ID: "+id)
		return "", false
	}
	return id, true
}

func (h *AnalysisHandler) load(w http.ResponseWriter, r *http.Request) (*models.AnalysisRecord, bool) {
	id, ok := requireAnalysisID(w, r)
	if !ok {
		return nil, false
	}
	record, err := h.research.GetAnalysis(r.Context(), id)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return nil, false
	}
	return record, true
}

// ListHandler handles GET /api/analyses?status=&limit=&offset=
func (h *AnalysisHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit, offset := GetPaginationParams(r)
	opts := &interfaces.AnalysisListOptions{
		Status: models.AnalysisStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	records, err := h.research.ListAnalyses(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	if records == nil {
		records = []*models.AnalysisRecord{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"analyses": records,
		"count":    len(records),
		"limit":    limit,
		"offset":   offset,
	})
}

// GetHandler handles GET /api/analyses/{id}
func (h *AnalysisHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	record, ok := h.load(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, record)
}

// StatusHandler handles GET /api/analyses/{id}/status
func (h *AnalysisHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	record, ok := h.load(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":           record.ID,
		"status":       record.Status,
		"progress":     record.Progress,
		"current_step": record.CurrentStep,
		"tickers":      record.Tickers,
		"running":      h.research.IsRunning(record.ID),
		"error":        record.Error,
	})
}

// CancelHandler handles DELETE /api/analyses/{id}
func (h *AnalysisHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := requireAnalysisID(w, r)
	if !ok {
		return
	}
	if err := h.research.CancelAnalysis(r.Context(), id); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Analysis cancelled",
		"id":      id,
	})
}

// MarkdownReportHandler handles GET /api/analyses/{id}/report.md
func (h *AnalysisHandler) MarkdownReportHandler(w http.ResponseWriter, r *http.Request) {
	record, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.reports.Markdown(record)))
}

// HTMLReportHandler handles GET /api/analyses/{id}/report.html
func (h *AnalysisHandler) HTMLReportHandler(w http.ResponseWriter, r *http.Request) {
	record, ok := h.load(w, r)
	if !ok {
		return
	}
	body, err := h.reports.HTML(record)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// PDFReportHandler handles GET /api/analyses/{id}/report.pdf
func (h *AnalysisHandler) PDFReportHandler(w http.ResponseWriter, r *http.Request) {
	record, ok := h.load(w, r)
	if !ok {
		return
	}
	body, err := h.reports.PDF(record)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.ID+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
