package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"tradepulse/internal/analysis"
	"tradepulse/internal/infrastructure"
)

// Pipeline is the default analysis.Engine: a staged multi-agent run
// over a chat-completion backend. Analyst reports fan out
// concurrently; the debate and risk stages are inherently sequential.
type Pipeline struct {
	chat   ChatClient
	market MarketDataSource
	memory *SessionMemory
	logger *slog.Logger
}

// NewPipeline creates an engine over the given chat backend
func NewPipeline(chat ChatClient, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Pipeline{
		chat:   chat,
		market: YahooMarketData{},
		memory: NewSessionMemory(5),
		logger: logger.With(slog.String("component", "engine.pipeline")),
	}
}

// WithMarketData overrides the market data source. Used by tests.
func (p *Pipeline) WithMarketData(src MarketDataSource) *Pipeline {
	p.market = src
	return p
}

// Analyst role labels as they appear in debate transcripts. The risk
// report formatter localizes these prefixes downstream.
const (
	labelBull    = "Bull Analyst:"
	labelBear    = "Bear Analyst:"
	labelRisky   = "Risky Analyst:"
	labelSafe    = "Safe Analyst:"
	labelNeutral = "Neutral Analyst:"
	labelJudge   = "Risk Judge:"
)

var decisionPattern = regexp.MustCompile(`(?i)\b(BUY|SELL|HOLD)\b`)

// Run implements analysis.Engine
func (p *Pipeline) Run(ctx context.Context, stockCode, analysisDate string, analysts []string, cfg analysis.ExecutionConfig, onProgress func(analysis.ProgressEvent)) (analysis.State, interface{}, error) {
	// One step per analyst report, two per debate round, three per risk
	// round, plus research verdict, trader plan and risk verdict.
	total := len(analysts) + 2*cfg.MaxDebateRounds + 3*cfg.MaxRiskDiscussRounds + 3

	var stepCounter atomic.Int64
	progress := func(message string) {
		if onProgress == nil {
			return
		}
		onProgress(analysis.ProgressEvent{
			Message:    message,
			Step:       int(stepCounter.Add(1)),
			TotalSteps: total,
		})
	}

	state := analysis.State{}

	// Analyst team fans out; each report is independent
	reports := make([]string, len(analysts))
	g, gctx := errgroup.WithContext(ctx)
	for i, role := range analysts {
		i, role := i, role
		g.Go(func() error {
			report, err := p.analystReport(gctx, role, stockCode, analysisDate, cfg)
			if err != nil {
				return fmt.Errorf("%s analyst: %w", role, err)
			}
			reports[i] = report
			progress(fmt.Sprintf("%s analyst report ready for %s", role, stockCode))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	for i, role := range analysts {
		state[reportKey(role)] = reports[i]
	}

	background := p.background(stockCode, analysisDate, analysts, reports, cfg)

	// Research team: bull vs bear for the configured number of rounds,
	// then the research manager rules.
	var bullHistory, bearHistory strings.Builder
	for round := 1; round <= cfg.MaxDebateRounds; round++ {
		bull, err := p.chat.Chat(ctx, cfg.DeepThinkModel,
			"You are a bullish equity researcher. Argue the strongest case for buying, grounded in the reports.",
			background+"\nOpposing view so far:\n"+bearHistory.String())
		if err != nil {
			return nil, nil, fmt.Errorf("bull researcher round %d: %w", round, err)
		}
		fmt.Fprintf(&bullHistory, "%s %s\n", labelBull, bull)
		progress(fmt.Sprintf("debate round %d/%d: bull case for %s", round, cfg.MaxDebateRounds, stockCode))

		bear, err := p.chat.Chat(ctx, cfg.DeepThinkModel,
			"You are a bearish equity researcher. Argue the strongest case against buying, grounded in the reports.",
			background+"\nOpposing view so far:\n"+bullHistory.String())
		if err != nil {
			return nil, nil, fmt.Errorf("bear researcher round %d: %w", round, err)
		}
		fmt.Fprintf(&bearHistory, "%s %s\n", labelBear, bear)
		progress(fmt.Sprintf("debate round %d/%d: bear case for %s", round, cfg.MaxDebateRounds, stockCode))
	}

	verdict, err := p.chat.Chat(ctx, cfg.DeepThinkModel,
		"You are the research manager. Weigh both sides and issue an investment recommendation.",
		background+"\n"+bullHistory.String()+bearHistory.String())
	if err != nil {
		return nil, nil, fmt.Errorf("research manager: %w", err)
	}
	state["investment_debate_state"] = map[string]interface{}{
		"bull_history":   strings.TrimSpace(bullHistory.String()),
		"bear_history":   strings.TrimSpace(bearHistory.String()),
		"judge_decision": verdict,
	}
	progress(fmt.Sprintf("research verdict reached for %s", stockCode))

	// Trader turns the verdict into an actionable plan
	plan, err := p.chat.Chat(ctx, cfg.QuickThinkModel,
		"You are a trader. Turn the research verdict into a concrete trading plan with entry, sizing and exit.",
		background+"\nResearch verdict:\n"+verdict)
	if err != nil {
		return nil, nil, fmt.Errorf("trader: %w", err)
	}
	state["trader_investment_plan"] = plan
	progress(fmt.Sprintf("trading plan drafted for %s", stockCode))

	// Risk team: three perspectives per round, then the committee rules
	var riskyHistory, safeHistory, neutralHistory strings.Builder
	riskContext := background + "\nProposed plan:\n" + plan
	for round := 1; round <= cfg.MaxRiskDiscussRounds; round++ {
		for _, rv := range []struct {
			label   string
			system  string
			history *strings.Builder
			name    string
		}{
			{labelRisky, "You are an aggressive risk analyst. Stress the upside being left on the table.", &riskyHistory, "aggressive"},
			{labelSafe, "You are a conservative risk analyst. Stress capital preservation and downside scenarios.", &safeHistory, "conservative"},
			{labelNeutral, "You are a neutral risk analyst. Balance the aggressive and conservative views.", &neutralHistory, "neutral"},
		} {
			view, err := p.chat.Chat(ctx, cfg.QuickThinkModel, rv.system,
				riskContext+"\nDiscussion so far:\n"+riskyHistory.String()+safeHistory.String()+neutralHistory.String())
			if err != nil {
				return nil, nil, fmt.Errorf("%s risk analyst round %d: %w", rv.name, round, err)
			}
			fmt.Fprintf(rv.history, "%s %s\n", rv.label, view)
			progress(fmt.Sprintf("risk round %d/%d: %s view on %s", round, cfg.MaxRiskDiscussRounds, rv.name, stockCode))
		}
	}

	judgeDecision, err := p.chat.Chat(ctx, cfg.DeepThinkModel,
		"You are the risk management committee chair. Issue the final decision. Start your answer with BUY, SELL or HOLD.",
		riskContext+"\nDiscussion:\n"+riskyHistory.String()+safeHistory.String()+neutralHistory.String())
	if err != nil {
		return nil, nil, fmt.Errorf("risk judge: %w", err)
	}
	state["risk_debate_state"] = map[string]interface{}{
		"risky_history":   strings.TrimSpace(riskyHistory.String()),
		"safe_history":    strings.TrimSpace(safeHistory.String()),
		"neutral_history": strings.TrimSpace(neutralHistory.String()),
		"judge_decision":  judgeDecision,
	}
	state["final_trade_decision"] = judgeDecision
	progress(fmt.Sprintf("risk committee decision reached for %s", stockCode))

	decision := parseDecision(judgeDecision)

	if cfg.MemoryEnabled {
		p.memory.Remember(stockCode, fmt.Sprintf("%s: decided %s", analysisDate, decision))
	}

	p.logger.InfoContext(ctx, "pipeline run finished",
		slog.String("stock_code", stockCode),
		slog.String("decision", decision))

	return state, decision, nil
}

// analystReport produces one analyst team report
func (p *Pipeline) analystReport(ctx context.Context, role, stockCode, analysisDate string, cfg analysis.ExecutionConfig) (string, error) {
	var system, extra string
	switch role {
	case analysis.AnalystMarket:
		system = "You are a market analyst. Assess price action, trend and technical posture."
		if cfg.OnlineTools {
			snapshot, err := p.market.Snapshot(ctx, stockCode)
			if err != nil {
				// Live data is an enrichment, not a requirement
				p.logger.WarnContext(ctx, "market snapshot unavailable",
					slog.String("stock_code", stockCode),
					slog.String("error", err.Error()))
			} else {
				extra = "\nLatest quote: " + snapshot
			}
		}
	case analysis.AnalystSocial:
		system = "You are a social sentiment analyst. Assess retail and social media sentiment."
	case analysis.AnalystNews:
		system = "You are a news analyst. Assess recent headlines and their likely price impact."
	case analysis.AnalystFundamentals:
		system = "You are a fundamentals analyst. Assess valuation, earnings and balance sheet quality."
	default:
		return "", fmt.Errorf("unknown analyst role %q", role)
	}

	user := fmt.Sprintf("Analyze %s as of %s.%s", stockCode, analysisDate, extra)
	return p.chat.Chat(ctx, cfg.QuickThinkModel, system, user)
}

// background assembles the shared prompt context for downstream stages
func (p *Pipeline) background(stockCode, analysisDate string, analysts, reports []string, cfg analysis.ExecutionConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stock: %s, date: %s.\n", stockCode, analysisDate)
	for i, role := range analysts {
		fmt.Fprintf(&b, "[%s report]\n%s\n", role, reports[i])
	}
	if cfg.MemoryEnabled {
		if recalled := p.memory.Recall(stockCode); recalled != "" {
			fmt.Fprintf(&b, "[past sessions]\n%s\n", recalled)
		}
	}
	return b.String()
}

// reportKey maps an analyst role to its state key
func reportKey(role string) string {
	switch role {
	case analysis.AnalystMarket:
		return "market_report"
	case analysis.AnalystSocial:
		return "sentiment_report"
	case analysis.AnalystNews:
		return "news_report"
	case analysis.AnalystFundamentals:
		return "fundamentals_report"
	default:
		return role + "_report"
	}
}

// parseDecision extracts the committee's trade signal, defaulting to HOLD
func parseDecision(text string) string {
	if m := decisionPattern.FindString(text); m != "" {
		return strings.ToUpper(m)
	}
	return "HOLD"
}
