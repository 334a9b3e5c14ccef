package preparer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepulse/internal/analysis"
)

// stubPreparer returns canned output or misbehaves on demand
type stubPreparer struct {
	result analysis.PreparationResult
	err    error
	panics bool
	delay  time.Duration
}

func (s *stubPreparer) Prepare(ctx context.Context, stockCode string) (analysis.PreparationResult, error) {
	if s.panics {
		panic("preparer exploded")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return analysis.PreparationResult{}, ctx.Err()
		}
	}
	return s.result, s.err
}

func TestGatePassesThroughValidResult(t *testing.T) {
	want := analysis.PreparationResult{
		IsValid:    true,
		StockName:  "Apple Inc.",
		MarketType: analysis.MarketForeign,
	}
	gate := NewGate(&stubPreparer{result: want}, time.Second, nil)

	got := gate.Validate(context.Background(), "AAPL")

	assert.Equal(t, want, got)
}

func TestGatePassesThroughInvalidResult(t *testing.T) {
	want := analysis.PreparationResult{
		IsValid:      false,
		MarketType:   analysis.MarketUnknown,
		ErrorMessage: "unknown ticker",
		Suggestion:   "verify ticker symbol",
	}
	gate := NewGate(&stubPreparer{result: want}, time.Second, nil)

	got := gate.Validate(context.Background(), "NOPE")

	assert.Equal(t, want, got)
}

func TestGateConvertsCollaboratorError(t *testing.T) {
	gate := NewGate(&stubPreparer{err: errors.New("dns lookup failed")}, time.Second, nil)

	got := gate.Validate(context.Background(), "AAPL")

	require.False(t, got.IsValid)
	assert.Contains(t, got.ErrorMessage, "data preparation failed")
	assert.Contains(t, got.ErrorMessage, "dns lookup failed")
	assert.Equal(t, networkSuggestion, got.Suggestion)
	assert.Equal(t, analysis.MarketUnknown, got.MarketType)
}

func TestGateConvertsCollaboratorPanic(t *testing.T) {
	gate := NewGate(&stubPreparer{panics: true}, time.Second, nil)

	var got analysis.PreparationResult
	require.NotPanics(t, func() {
		got = gate.Validate(context.Background(), "AAPL")
	})
	assert.False(t, got.IsValid)
	assert.Contains(t, got.ErrorMessage, "data preparation failed")
	assert.Equal(t, networkSuggestion, got.Suggestion)
}

func TestGateTimesOutSlowCollaborator(t *testing.T) {
	gate := NewGate(&stubPreparer{
		delay:  time.Second,
		result: analysis.PreparationResult{IsValid: true},
	}, 10*time.Millisecond, nil)

	start := time.Now()
	got := gate.Validate(context.Background(), "AAPL")

	assert.False(t, got.IsValid, "timeout counts as a validation failure")
	assert.Contains(t, got.ErrorMessage, "data preparation failed")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
