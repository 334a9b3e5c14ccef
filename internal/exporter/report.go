package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"tradepulse/internal/analysis"
	"tradepulse/internal/infrastructure"
)

// reportSections lists the state keys exported to their own sheet, in
// workbook order
var reportSections = []struct {
	key   string
	sheet string
}{
	{"market_report", "Market"},
	{"sentiment_report", "Sentiment"},
	{"news_report", "News"},
	{"fundamentals_report", "Fundamentals"},
	{"trader_investment_plan", "Trading Plan"},
	{"risk_assessment", "Risk Assessment"},
	{"final_trade_decision", "Final Decision"},
}

// ReportWriter exports completed analyses as Excel workbooks
type ReportWriter struct {
	dir    string
	logger *slog.Logger
}

// NewReportWriter creates a writer placing workbooks under dir
func NewReportWriter(dir string, logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ReportWriter{
		dir:    dir,
		logger: logger.With(slog.String("component", "exporter.report")),
	}
}

// WriteResult writes one successful analysis result to an .xlsx file
// and returns its path
func (w *ReportWriter) WriteResult(result analysis.Result) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return "", fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Stock Symbol", result.StockSymbol},
		{"Analysis Date", result.AnalysisDate},
		{"Decision", fmt.Sprintf("%v", result.Decision)},
		{"Research Depth", result.ResearchDepth},
		{"Analysts", strings.Join(result.Analysts, ", ")},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	for _, section := range reportSections {
		text, ok := result.State[section.key].(string)
		if !ok || text == "" {
			continue
		}
		if _, err := f.NewSheet(section.sheet); err != nil {
			return "", fmt.Errorf("failed to create sheet %s: %w", section.sheet, err)
		}
		if err := f.SetCellValue(section.sheet, "A1", text); err != nil {
			return "", fmt.Errorf("failed to write sheet %s: %w", section.sheet, err)
		}
		if err := f.SetColWidth(section.sheet, "A", "A", 120); err != nil {
			return "", err
		}
	}

	name := fmt.Sprintf("%s_%s.xlsx", sanitizeFileName(result.StockSymbol), result.AnalysisDate)
	path := filepath.Join(w.dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Info("analysis report exported",
		slog.String("stock_symbol", result.StockSymbol),
		slog.String("path", path))
	return path, nil
}

// sanitizeFileName strips characters that are unsafe in file names
func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
