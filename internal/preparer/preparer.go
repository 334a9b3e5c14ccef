package preparer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/piquette/finance-go/quote"

	"tradepulse/internal/analysis"
	"tradepulse/internal/infrastructure"
)

// DataPreparer validates and classifies a stock identifier before
// expensive analysis work begins. Implementations may return an error
// when the data source is unreachable; callers go through the Gate,
// which converts errors into invalid PreparationResults.
type DataPreparer interface {
	Prepare(ctx context.Context, stockCode string) (analysis.PreparationResult, error)
}

var (
	// Shanghai/Shenzhen listings: 6 digits, optionally exchange-qualified
	cnBareCode      = regexp.MustCompile(`^\d{6}$`)
	cnQualifiedCode = regexp.MustCompile(`^\d{6}\.(SS|SZ)$`)
	usTicker        = regexp.MustCompile(`^[A-Z][A-Z.\-]{0,9}$`)
)

// YahooPreparer resolves symbols against Yahoo Finance quote data
type YahooPreparer struct {
	logger *slog.Logger
}

// NewYahooPreparer creates the production data preparer
func NewYahooPreparer(logger *slog.Logger) *YahooPreparer {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &YahooPreparer{
		logger: logger.With(slog.String("component", "preparer.yahoo")),
	}
}

// Prepare looks up the symbol and returns its canonical name and
// market classification. Unknown symbols come back invalid with a
// user-facing suggestion; transport problems come back as an error.
func (p *YahooPreparer) Prepare(ctx context.Context, stockCode string) (analysis.PreparationResult, error) {
	symbol := NormalizeSymbol(stockCode)
	if symbol == "" {
		return analysis.PreparationResult{
			IsValid:      false,
			MarketType:   analysis.MarketUnknown,
			ErrorMessage: "stock code is empty",
			Suggestion:   "provide a ticker symbol, e.g. AAPL or 600519.SS",
		}, nil
	}

	if !validSymbolShape(symbol) {
		return analysis.PreparationResult{
			IsValid:      false,
			MarketType:   analysis.MarketUnknown,
			ErrorMessage: fmt.Sprintf("unrecognized stock code: %s", stockCode),
			Suggestion:   "verify ticker symbol",
		}, nil
	}

	// finance-go has no context support; bound the call ourselves so
	// the gate's timeout holds.
	type quoteResult struct {
		name string
		err  error
	}
	done := make(chan quoteResult, 1)
	go func() {
		q, err := quote.Get(symbol)
		if err != nil {
			done <- quoteResult{err: err}
			return
		}
		if q == nil {
			done <- quoteResult{err: fmt.Errorf("no quote data for %s", symbol)}
			return
		}
		name := q.ShortName
		if name == "" {
			name = symbol
		}
		done <- quoteResult{name: name}
	}()

	select {
	case <-ctx.Done():
		return analysis.PreparationResult{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			p.logger.WarnContext(ctx, "quote lookup failed",
				slog.String("symbol", symbol),
				slog.String("error", res.err.Error()))
			return analysis.PreparationResult{}, res.err
		}
		return analysis.PreparationResult{
			IsValid:    true,
			StockName:  res.name,
			MarketType: ClassifyMarket(symbol),
		}, nil
	}
}

// NormalizeSymbol uppercases and trims a raw stock code, and qualifies
// bare Chinese A-share codes with their exchange suffix
func NormalizeSymbol(stockCode string) string {
	symbol := strings.ToUpper(strings.TrimSpace(stockCode))
	if cnBareCode.MatchString(symbol) {
		// 6xxxxx trades in Shanghai, the rest in Shenzhen
		if strings.HasPrefix(symbol, "6") {
			return symbol + ".SS"
		}
		return symbol + ".SZ"
	}
	return symbol
}

// validSymbolShape reports whether the symbol looks like a ticker at all
func validSymbolShape(symbol string) bool {
	return cnQualifiedCode.MatchString(symbol) || usTicker.MatchString(symbol)
}

// ClassifyMarket buckets a normalized symbol into a market type
func ClassifyMarket(symbol string) analysis.MarketType {
	switch {
	case cnQualifiedCode.MatchString(symbol):
		return analysis.MarketDomestic
	case usTicker.MatchString(symbol):
		return analysis.MarketForeign
	default:
		return analysis.MarketUnknown
	}
}
