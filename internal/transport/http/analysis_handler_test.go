package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepulse/internal/analysis"
)

type stubService struct {
	result analysis.Result
	got    *analysis.Request
}

func (s *stubService) RunAnalysis(ctx context.Context, req analysis.Request) analysis.Result {
	s.got = &req
	return s.result
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postAnalysis(t *testing.T, handler *AnalysisHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)
	return rec
}

func TestStartAnalysisSuccess(t *testing.T) {
	svc := &stubService{result: analysis.Result{
		Success:     true,
		StockSymbol: "AAPL",
		Decision:    "BUY",
		State:       analysis.State{},
	}}
	handler := NewAnalysisHandler(svc, discardLogger())

	rec := postAnalysis(t, handler, `{"stock_code":"AAPL","research_depth":3,"analysts":["market","news"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.got)
	assert.Equal(t, "AAPL", svc.got.StockCode)
	assert.Equal(t, 3, svc.got.ResearchDepth)
	assert.Equal(t, []string{"market", "news"}, svc.got.Analysts)

	var envelope analysis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "BUY", envelope.Decision)
}

func TestStartAnalysisBusinessFailureIsStill200(t *testing.T) {
	svc := &stubService{result: analysis.Result{
		Success:     false,
		StockSymbol: "NOPE",
		Error:       "unknown ticker",
		Suggestion:  "verify ticker symbol",
	}}
	handler := NewAnalysisHandler(svc, discardLogger())

	rec := postAnalysis(t, handler, `{"stock_code":"NOPE"}`)

	// Business rejections ride inside the envelope, not the status line
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope analysis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "unknown ticker", envelope.Error)
	assert.Equal(t, "verify ticker symbol", envelope.Suggestion)
}

func TestStartAnalysisMissingStockCode(t *testing.T) {
	svc := &stubService{}
	handler := NewAnalysisHandler(svc, discardLogger())

	rec := postAnalysis(t, handler, `{"research_depth":3}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.got, "the service must not run for malformed requests")
	assert.Contains(t, rec.Body.String(), "StockCode is required")
}

func TestStartAnalysisBadDateFormat(t *testing.T) {
	handler := NewAnalysisHandler(&stubService{}, discardLogger())

	rec := postAnalysis(t, handler, `{"stock_code":"AAPL","analysis_date":"09/01/2026"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "YYYY-MM-DD")
}

func TestStartAnalysisUnknownAnalystRole(t *testing.T) {
	handler := NewAnalysisHandler(&stubService{}, discardLogger())

	rec := postAnalysis(t, handler, `{"stock_code":"AAPL","analysts":["astrology"]}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown analyst role")
}

func TestStartAnalysisMalformedJSON(t *testing.T) {
	handler := NewAnalysisHandler(&stubService{}, discardLogger())

	rec := postAnalysis(t, handler, `{"stock_code":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type staticCounter int

func (c staticCounter) ClientCount() int { return int(c) }

func TestGetHealth(t *testing.T) {
	handler := NewHealthHandler("1.2.3", staticCounter(4), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, float64(4), body["subscribers"])
	assert.NotEmpty(t, body["uptime"])
}
