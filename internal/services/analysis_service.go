package services

import (
	"context"
	"log/slog"

	"tradepulse/internal/analysis"
	"tradepulse/internal/infrastructure"
)

// ProgressHub is the subset of the websocket hub the service layer
// needs for relaying progress
type ProgressHub interface {
	BroadcastProgress(message string, step, totalSteps int)
}

// HubSink adapts a ProgressHub to the orchestrator's sink interface
type HubSink struct {
	hub ProgressHub
}

// NewHubSink creates the hub-backed progress sink
func NewHubSink(hub ProgressHub) *HubSink {
	return &HubSink{hub: hub}
}

// Publish implements analysis.ProgressSink
func (s *HubSink) Publish(event analysis.ProgressEvent) {
	s.hub.BroadcastProgress(event.Message, event.Step, event.TotalSteps)
}

// ReportExporter persists a completed analysis somewhere durable
type ReportExporter interface {
	WriteResult(result analysis.Result) (string, error)
}

// AnalysisService fronts the orchestrator for the transport layer and
// handles the optional report export side effect
type AnalysisService struct {
	orchestrator *analysis.Orchestrator
	exporter     ReportExporter
	logger       *slog.Logger
}

// NewAnalysisService creates the analysis service. exporter may be nil
// when exports are disabled.
func NewAnalysisService(orchestrator *analysis.Orchestrator, exporter ReportExporter, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &AnalysisService{
		orchestrator: orchestrator,
		exporter:     exporter,
		logger:       logger.With(slog.String("service", "analysis")),
	}
}

// RunAnalysis executes one analysis request. Always returns a
// well-formed envelope; export failures are logged, never surfaced.
func (s *AnalysisService) RunAnalysis(ctx context.Context, req analysis.Request) analysis.Result {
	result := s.orchestrator.Run(ctx, req)

	if result.Success && s.exporter != nil {
		if path, err := s.exporter.WriteResult(result); err != nil {
			s.logger.WarnContext(ctx, "report export failed",
				slog.String("stock_symbol", result.StockSymbol),
				slog.String("error", err.Error()))
		} else {
			s.logger.InfoContext(ctx, "report exported",
				slog.String("path", path))
		}
	}

	return result
}
