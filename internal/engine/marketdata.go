package engine

import (
	"context"
	"fmt"

	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// MarketDataSource supplies a textual market snapshot for the market
// analyst stage when online tools are enabled
type MarketDataSource interface {
	Snapshot(ctx context.Context, symbol string) (string, error)
}

// YahooMarketData pulls the latest quote from Yahoo Finance
type YahooMarketData struct{}

// Snapshot implements MarketDataSource
func (YahooMarketData) Snapshot(ctx context.Context, symbol string) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		q, err := quote.Get(symbol)
		if err != nil {
			done <- result{err: fmt.Errorf("quote lookup for %s: %w", symbol, err)}
			return
		}
		if q == nil {
			done <- result{err: fmt.Errorf("no quote data for %s", symbol)}
			return
		}

		price := decimal.NewFromFloat(q.RegularMarketPrice)
		open := decimal.NewFromFloat(q.RegularMarketOpen)
		high := decimal.NewFromFloat(q.RegularMarketDayHigh)
		low := decimal.NewFromFloat(q.RegularMarketDayLow)
		changePct := decimal.NewFromFloat(q.RegularMarketChangePercent)

		done <- result{text: fmt.Sprintf(
			"symbol=%s price=%s open=%s high=%s low=%s change=%s%% volume=%d",
			symbol,
			price.StringFixed(2),
			open.StringFixed(2),
			high.StringFixed(2),
			low.StringFixed(2),
			changePct.StringFixed(2),
			q.RegularMarketVolume,
		)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.text, res.err
	}
}
