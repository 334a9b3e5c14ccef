package preparer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tradepulse/internal/analysis"
	"tradepulse/internal/infrastructure"
)

// Suggestion attached to every preparation failure caused by the data
// source rather than by the symbol itself
const networkSuggestion = "check network connectivity or retry later"

// Gate wraps a DataPreparer with a uniform success/failure envelope.
// It never returns an error and never retries: whatever the
// collaborator does, the caller gets exactly one PreparationResult.
type Gate struct {
	preparer DataPreparer
	timeout  time.Duration
	logger   *slog.Logger
}

// NewGate creates a validation gate. timeout bounds the collaborator
// call; a timeout counts as a validation failure.
func NewGate(preparer DataPreparer, timeout time.Duration, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Gate{
		preparer: preparer,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "preparer.gate")),
	}
}

// Validate implements analysis.Validator
func (g *Gate) Validate(ctx context.Context, stockCode string) (result analysis.PreparationResult) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	// A panicking collaborator must not crash the request either
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("data preparer panicked", slog.Any("panic", r))
			result = preparationFailure(fmt.Errorf("%v", r))
		}
	}()

	prep, err := g.preparer.Prepare(ctx, stockCode)
	if err != nil {
		g.logger.WarnContext(ctx, "data preparation failed",
			slog.String("stock_code", stockCode),
			slog.String("error", err.Error()))
		return preparationFailure(err)
	}
	return prep
}

func preparationFailure(err error) analysis.PreparationResult {
	return analysis.PreparationResult{
		IsValid:      false,
		MarketType:   analysis.MarketUnknown,
		ErrorMessage: fmt.Sprintf("data preparation failed: %v", err),
		Suggestion:   networkSuggestion,
	}
}
