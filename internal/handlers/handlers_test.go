package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/ternarybob/tickerchat/internal/services/report"
	"github.com/ternarybob/tickerchat/internal/services/research"
)

type mockResearcher struct {
	mock.Mock
}

func (m *mockResearcher) Handle(ctx context.Context, req research.Request) (*research.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*research.Response)
	return resp, args.Error(1)
}

func (m *mockResearcher) GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	args := m.Called(id)
	record, _ := args.Get(0).(*models.AnalysisRecord)
	return record, args.Error(1)
}

func (m *mockResearcher) ListAnalyses(ctx context.Context, opts *interfaces.AnalysisListOptions) ([]*models.AnalysisRecord, error) {
	args := m.Called(opts)
	records, _ := args.Get(0).([]*models.AnalysisRecord)
	return records, args.Error(1)
}

func (m *mockResearcher) CancelAnalysis(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *mockResearcher) IsRunning(id string) bool {
	return m.Called(id).Bool(0)
}

type conversationMap map[string]*models.Conversation

func (c conversationMap) Get(ctx context.Context, id string) (*models.Conversation, error) {
	if conv, ok := c[id]; ok {
		return conv, nil
	}
	return nil, fmt.Errorf("%w: %s", interfaces.ErrConversationNotFound, id)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", interfaces.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: conv_1", interfaces.ErrConversationNotFound), http.StatusNotFound},
		{interfaces.ErrAnalysisNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: conv_1", interfaces.ErrConversationExpired), http.StatusGone},
		{interfaces.ErrConversationResolved, http.StatusConflict},
		{fmt.Errorf("%w: conv_1", interfaces.ErrConversationConflict), http.StatusConflict},
		{interfaces.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForError(tt.err))
		})
	}
}

func TestResearchHandler_Question(t *testing.T) {
	m := &mockResearcher{}
	m.On("Handle", research.Request{Query: "Analyze matae for 1 month"}).Return(&research.Response{
		NeedsConfirmation: true,
		Question:          "Did you mean Meta Platforms Inc. (META)?",
		ConversationID:    "conv_1",
	}, nil)
	h := NewResearchHandler(m, conversationMap{}, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"query":"Analyze matae for 1 month"}`))
	rec := httptest.NewRecorder()
	h.ResearchHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["needs_confirmation"])
	assert.Equal(t, "conv_1", body["conversation_id"])
	m.AssertExpectations(t)
}

func TestResearchHandler_PartialFailureIsSuccess(t *testing.T) {
	m := &mockResearcher{}
	m.On("Handle", mock.Anything).Return(&research.Response{
		Tickers: []string{"MSFT", "AMZN"},
		Results: &models.OrchestrationResult{
			PartialFailure: true,
			Outcomes: []models.PipelineOutcome{
				{Ticker: "MSFT", Insight: &models.TickerInsight{Ticker: "MSFT"}},
				{Ticker: "AMZN", Failure: &models.Failure{Ticker: "AMZN", Reason: "timed out", Kind: models.FailureTimeout}},
			},
		},
	}, nil)
	h := NewResearchHandler(m, conversationMap{}, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"conversation_id":"conv_1","confirmation_answer":"Amazon"}`))
	rec := httptest.NewRecorder()
	h.ResearchHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	results := body["results"].(map[string]interface{})
	assert.Equal(t, true, results["partial_failure"])
	assert.Len(t, results["outcomes"], 2)
}

func TestResearchHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "expired", body: `{"conversation_id":"conv_old","confirmation_answer":"yes"}`, err: fmt.Errorf("%w: conv_old", interfaces.ErrConversationExpired), status: http.StatusGone},
		{name: "not found", body: `{"conversation_id":"conv_x","confirmation_answer":"yes"}`, err: interfaces.ErrConversationNotFound, status: http.StatusNotFound},
		{name: "store down", body: `{"query":"AAPL"}`, err: interfaces.ErrStoreUnavailable, status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockResearcher{}
			m.On("Handle", mock.Anything).Return(nil, tt.err)
			h := NewResearchHandler(m, conversationMap{}, arbor.NewLogger())

			rec := httptest.NewRecorder()
			h.ResearchHandler(rec, httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "error", decodeBody(t, rec)["status"])
		})
	}

	t.Run("bad json", func(t *testing.T) {
		m := &mockResearcher{}
		h := NewResearchHandler(m, conversationMap{}, arbor.NewLogger())
		rec := httptest.NewRecorder()
		h.ResearchHandler(rec, httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"query":`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		m.AssertNotCalled(t, "Handle", mock.Anything)
	})

	t.Run("wrong method", func(t *testing.T) {
		h := NewResearchHandler(&mockResearcher{}, conversationMap{}, arbor.NewLogger())
		rec := httptest.NewRecorder()
		h.ResearchHandler(rec, httptest.NewRequest(http.MethodGet, "/api/research", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

const (
	testConversationID    = "conv_0b7e4a52-9c1d-4f3e-8a6b-5d2c1e0f9a84"
	missingConversationID = "conv_3c9d8e7f-1a2b-4c5d-9e6f-7a8b9c0d1e2f"
	testAnalysisID        = "ana_6f1c2a9e-3b4d-4e8f-9a1b-2c3d4e5f6a7b"
	missingAnalysisID     = "ana_9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b"
)

func TestGetConversationHandler(t *testing.T) {
	convs := conversationMap{testConversationID: {ID: testConversationID, State: models.StateAwaitingConfirmation, OriginalQuery: "Analyze matae"}}
	h := NewResearchHandler(&mockResearcher{}, convs, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.GetConversationHandler(rec, httptest.NewRequest(http.MethodGet, "/api/conversations/"+testConversationID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "awaiting_confirmation", decodeBody(t, rec)["state"])

	rec = httptest.NewRecorder()
	h.GetConversationHandler(rec, httptest.NewRequest(http.MethodGet, "/api/conversations/"+missingConversationID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.GetConversationHandler(rec, httptest.NewRequest(http.MethodGet, "/api/conversations/conv_2", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func completedRecord() *models.AnalysisRecord {
	return &models.AnalysisRecord{
		ID:      testAnalysisID,
		Query:   "Analyze META",
		Tickers: []string{"META"},
		Status:  models.AnalysisCompleted,
		Result: &models.OrchestrationResult{Outcomes: []models.PipelineOutcome{
			{Ticker: "META", Insight: &models.TickerInsight{Ticker: "META", Stance: models.StanceBuy, Summary: "Strong ads growth."}},
		}},
	}
}

func TestAnalysisHandler(t *testing.T) {
	m := &mockResearcher{}
	m.On("GetAnalysis", testAnalysisID).Return(completedRecord(), nil)
	m.On("GetAnalysis", missingAnalysisID).Return(nil, interfaces.ErrAnalysisNotFound)
	m.On("IsRunning", testAnalysisID).Return(false)
	m.On("CancelAnalysis", testAnalysisID).Return(nil)
	m.On("ListAnalyses", mock.Anything).Return([]*models.AnalysisRecord{completedRecord()}, nil)

	h := NewAnalysisHandler(m, report.NewService(arbor.NewLogger()), arbor.NewLogger())

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GetHandler(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/"+testAnalysisID, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "completed", decodeBody(t, rec)["status"])
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GetHandler(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/"+missingAnalysisID, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		for _, path := range []string{"/api/analyses/ana_missing", "/api/analyses/" + testConversationID} {
			rec := httptest.NewRecorder()
			h.GetHandler(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, path)

			rec = httptest.NewRecorder()
			h.CancelHandler(rec, httptest.NewRequest(http.MethodDelete, path, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		}
	})

	t.Run("status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/"+testAnalysisID+"/status", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, testAnalysisID, body["id"])
		assert.Equal(t, false, body["running"])
	})

	t.Run("cancel", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.CancelHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/analyses/"+testAnalysisID, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/analyses?limit=5&status=completed", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(1), body["count"])
		assert.Equal(t, float64(5), body["limit"])
	})

	t.Run("markdown report", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.MarkdownReportHandler(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/"+testAnalysisID+"/report.md", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Strong ads growth.")
	})

	t.Run("html report", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HTMLReportHandler(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/"+testAnalysisID+"/report.html", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<h1")
	})

	t.Run("pdf report", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.PDFReportHandler(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/"+testAnalysisID+"/report.pdf", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
	})

	m.AssertExpectations(t)
}

func TestAnalysisID(t *testing.T) {
	assert.Equal(t, "ana_1", AnalysisID("/api/analyses/ana_1"))
	assert.Equal(t, "ana_1", AnalysisID("/api/analyses/ana_1/report.pdf"))
	assert.Equal(t, "", AnalysisID("/api/analyses/"))
}

type staticAgents []interfaces.AgentDescriptor

func (a staticAgents) Agents() []interfaces.AgentDescriptor { return a }

func TestAPIHandler(t *testing.T) {
	h := NewAPIHandler(staticAgents{{Name: "stock_info", Order: 1}, {Name: "synthesis", Order: 5}}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.AgentsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/agents", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["count"])

	rec = httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = httptest.NewRecorder()
	h.VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	assert.Contains(t, decodeBody(t, rec), "version")
}
