package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkrai19/ai-powered-analyst/pkg/chart"
	"github.com/darkrai19/ai-powered-analyst/pkg/pipeline"
	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

// mockAnswerer returns a fixed result for any question.
type mockAnswerer struct {
	result    *pipeline.Result
	questions []string
}

func (m *mockAnswerer) Answer(ctx context.Context, question string) *pipeline.Result {
	m.questions = append(m.questions, question)
	r := *m.result
	r.Question = question
	return &r
}

func newTestServer(t *testing.T, answerer Answerer) *Server {
	t.Helper()
	s, err := New(Config{
		Logger:   slog.New(slog.DiscardHandler),
		Pipeline: answerer,
	})
	require.NoError(t, err)
	return s
}

func successResult() *pipeline.Result {
	return &pipeline.Result{
		Plan: pipeline.AnalysisPlan{
			Reasoning: "Sum sales per month.",
			SQLQuery:  "SELECT year, month, total FROM monthly",
		},
		Table: &warehouse.Table{
			Columns: []string{"date", "total"},
			Rows: []warehouse.Row{
				{"date": "2024-01-01", "total": 10.0},
				{"date": "2024-02-01", "total": 20.0},
			},
			Count: 2,
		},
		Narrative: "Sales doubled from January to February.",
		Figure: &chart.Figure{
			Kind:  "line",
			Title: "Monthly Sales",
			Theme: "dark",
		},
	}
}

func TestHandleAsk(t *testing.T) {
	answerer := &mockAnswerer{result: successResult()}
	s := newTestServer(t, answerer)

	req := httptest.NewRequest(http.MethodPost, "/api/ask",
		strings.NewReader(`{"question": "How did sales trend?"}`))
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"How did sales trend?"}, answerer.questions)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "How did sales trend?", resp.Question)
	assert.Equal(t, "Sum sales per month.", resp.Reasoning)
	assert.Equal(t, 2, resp.RowCount)
	assert.Equal(t, []string{"date", "total"}, resp.Columns)
	assert.Equal(t, "Sales doubled from January to February.", resp.Narrative)
	require.NotNil(t, resp.Figure)
	assert.Equal(t, "line", resp.Figure.Kind)
}

func TestHandleAskFailedAnalysis(t *testing.T) {
	answerer := &mockAnswerer{result: &pipeline.Result{
		Narrative: "The planner failed to generate a valid SQL query: no JSON object in response",
	}}
	s := newTestServer(t, answerer)

	req := httptest.NewRequest(http.MethodPost, "/api/ask",
		strings.NewReader(`{"question": "???"}`))
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	// Failures still answer 200 with an explanatory narrative
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.RowCount)
	assert.Empty(t, resp.Columns)
	assert.Nil(t, resp.Figure)
	assert.Contains(t, resp.Narrative, "The planner failed")
}

func TestHandleAskValidation(t *testing.T) {
	s := newTestServer(t, &mockAnswerer{result: successResult()})

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", "{not json"},
		{"missing question", `{}`},
		{"blank question", `{"question": "   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.httpSrv.Handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &mockAnswerer{result: successResult()})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &mockAnswerer{result: successResult()})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "analyst_questions_total")
}
