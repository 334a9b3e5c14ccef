package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tradepulse/internal/infrastructure"
)

// ProgressSink receives progress events while a run is in flight.
// Publish must not block the caller for long; delivery to observers is
// best-effort.
type ProgressSink interface {
	Publish(event ProgressEvent)
}

// ProgressSinkFunc adapts a function to the ProgressSink interface
type ProgressSinkFunc func(event ProgressEvent)

// Publish implements ProgressSink
func (f ProgressSinkFunc) Publish(event ProgressEvent) { f(event) }

// Validator gates expensive work behind a cheap validity check.
// Implementations never return an error; collaborator failures come
// back as an invalid PreparationResult.
type Validator interface {
	Validate(ctx context.Context, stockCode string) PreparationResult
}

// Engine is the long-running multi-stage analysis computation. It may
// invoke onProgress zero or more times before returning, and must not
// assume onProgress blocks until observers are served.
type Engine interface {
	Run(ctx context.Context, stockCode, analysisDate string, analysts []string, cfg ExecutionConfig, onProgress func(ProgressEvent)) (State, interface{}, error)
}

// Orchestrator drives one analysis request end to end: validate,
// derive execution config, run the engine while relaying progress, and
// post-process the result. It holds no mutable state across runs, so
// any number of runs may be in flight concurrently.
type Orchestrator struct {
	validator Validator
	engine    Engine
	sink      ProgressSink
	provider  ModelProvider
	logger    *slog.Logger
}

// NewOrchestrator wires an orchestrator. sink may be nil when no
// observers exist (progress is then dropped).
func NewOrchestrator(validator Validator, engine Engine, sink ProgressSink, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Orchestrator{
		validator: validator,
		engine:    engine,
		sink:      sink,
		provider:  DefaultProvider,
		logger:    logger.With(slog.String("component", "analysis.orchestrator")),
	}
}

// WithProvider overrides the model provider used for derived configs
func (o *Orchestrator) WithProvider(provider ModelProvider) *Orchestrator {
	o.provider = provider
	return o
}

// Run executes one analysis request and always returns a well-formed
// Result; no collaborator error escapes.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	symbol := req.StockCode
	date := req.AnalysisDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	analysts := req.Analysts
	if len(analysts) == 0 {
		analysts = AllAnalysts
	}

	logger := o.logger.With(slog.String("stock_code", symbol), slog.String("analysis_date", date))
	logger.InfoContext(ctx, "analysis requested",
		slog.Int("research_depth", req.ResearchDepth),
		slog.Any("analysts", analysts))

	// Fail fast before committing minutes of engine work
	prep := o.validator.Validate(ctx, symbol)
	if !prep.IsValid {
		logger.WarnContext(ctx, "analysis rejected at validation",
			slog.String("error", prep.ErrorMessage))
		return Result{
			Success:      false,
			StockSymbol:  symbol,
			AnalysisDate: date,
			Error:        prep.ErrorMessage,
			Suggestion:   prep.Suggestion,
		}
	}

	o.publish(ProgressEvent{
		Message: fmt.Sprintf("data preparation complete: %s (%s market)", prep.StockName, prep.MarketType),
	})

	cfg := DeriveConfigFor(o.provider, req.ResearchDepth)

	o.publish(ProgressEvent{
		Message: fmt.Sprintf("analysis start: %s on %s, depth %d (%d debate rounds, %d risk rounds)",
			symbol, date, req.ResearchDepth, cfg.MaxDebateRounds, cfg.MaxRiskDiscussRounds),
	})

	state, decision, err := o.engine.Run(ctx, symbol, date, analysts, cfg, o.publish)
	if err != nil {
		logger.ErrorContext(ctx, "engine run failed", slog.String("error", err.Error()))
		// No partial state or decision surfaces, and no remedy is
		// fabricated for engine failures.
		return Result{
			Success:      false,
			StockSymbol:  symbol,
			AnalysisDate: date,
			Error:        fmt.Sprintf("analysis failed: %v", err),
		}
	}

	if assessment := ExtractRiskAssessment(state); assessment != "" {
		state["risk_assessment"] = assessment
	}

	o.publish(ProgressEvent{Message: fmt.Sprintf("analysis complete: %s", symbol)})
	logger.InfoContext(ctx, "analysis completed", slog.Any("decision", decision))

	return Result{
		Success:       true,
		StockSymbol:   symbol,
		AnalysisDate:  date,
		Analysts:      analysts,
		ResearchDepth: req.ResearchDepth,
		State:         state,
		Decision:      decision,
	}
}

// publish forwards an event to the sink. A sink failure must never
// reach the engine or abort the run.
func (o *Orchestrator) publish(event ProgressEvent) {
	if o.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("progress sink panicked", slog.Any("panic", r))
		}
	}()
	o.sink.Publish(event)
}
