package exporter

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tradepulse/internal/analysis"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteResultCreatesWorkbook(t *testing.T) {
	dir := t.TempDir()
	writer := NewReportWriter(dir, quietLogger())

	result := analysis.Result{
		Success:       true,
		StockSymbol:   "AAPL",
		AnalysisDate:  "2026-09-01",
		Analysts:      []string{"market", "news"},
		ResearchDepth: 3,
		Decision:      "BUY",
		State: analysis.State{
			"market_report":          "price action is constructive",
			"news_report":            "earnings beat expectations",
			"trader_investment_plan": "scale in over two weeks",
			"final_trade_decision":   "BUY with reduced size",
		},
	}

	path, err := writer.WriteResult(result)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "AAPL_2026-09-01.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Summary")
	assert.Contains(t, sheets, "Market")
	assert.Contains(t, sheets, "News")
	assert.Contains(t, sheets, "Trading Plan")
	assert.Contains(t, sheets, "Final Decision")
	// Sections absent from the state get no sheet
	assert.NotContains(t, sheets, "Sentiment")
	assert.NotContains(t, sheets, "Risk Assessment")

	symbol, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", symbol)

	decision, err := f.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "BUY", decision)

	market, err := f.GetCellValue("Market", "A1")
	require.NoError(t, err)
	assert.Equal(t, "price action is constructive", market)
}

func TestWriteResultSanitizesSymbol(t *testing.T) {
	dir := t.TempDir()
	writer := NewReportWriter(dir, quietLogger())

	path, err := writer.WriteResult(analysis.Result{
		StockSymbol:  "600519.SS",
		AnalysisDate: "2026-09-01",
		State:        analysis.State{},
	})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "600519.SS_2026-09-01.xlsx"), path)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeFileName(`a/b:c`))
	assert.Equal(t, "plain", sanitizeFileName("plain"))
}
