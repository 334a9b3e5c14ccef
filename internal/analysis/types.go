package analysis

// Analyst role tags accepted in a request
const (
	AnalystMarket       = "market"
	AnalystSocial       = "social"
	AnalystNews         = "news"
	AnalystFundamentals = "fundamentals"
)

// AllAnalysts is the full analyst team, used when a request names none
var AllAnalysts = []string{AnalystMarket, AnalystSocial, AnalystNews, AnalystFundamentals}

// MarketType classifies where a stock trades
type MarketType string

const (
	MarketDomestic MarketType = "domestic"
	MarketForeign  MarketType = "foreign"
	MarketUnknown  MarketType = "unknown"
)

// Request describes one analysis run. AnalysisDate defaults to the
// current date and Analysts to the full team when unset. ResearchDepth
// outside 1-5 is clamped to a policy tier, never rejected.
type Request struct {
	StockCode     string   `json:"stock_code" validate:"required"`
	StockName     string   `json:"stock_name,omitempty"`
	AnalysisDate  string   `json:"analysis_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Analysts      []string `json:"analysts,omitempty" validate:"omitempty,dive,oneof=market social news fundamentals"`
	ResearchDepth int      `json:"research_depth,omitempty"`
}

// PreparationResult is the outcome of the pre-analysis validity check
type PreparationResult struct {
	IsValid      bool       `json:"is_valid"`
	StockName    string     `json:"stock_name"`
	MarketType   MarketType `json:"market_type"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Suggestion   string     `json:"suggestion,omitempty"`
}

// ProgressEvent is a transient status message emitted while a run is in
// flight. Step counters are optional; zero TotalSteps means uncounted.
type ProgressEvent struct {
	Message    string `json:"message"`
	Step       int    `json:"step,omitempty"`
	TotalSteps int    `json:"total_steps,omitempty"`
}

// State is the engine's structured output. Keys are engine-defined; the
// orchestrator only ever injects risk_assessment.
type State map[string]interface{}

// Result is the single envelope returned for every terminal outcome.
// Callers discriminate on Success plus Error.
type Result struct {
	Success       bool        `json:"success"`
	StockSymbol   string      `json:"stock_symbol"`
	AnalysisDate  string      `json:"analysis_date"`
	Analysts      []string    `json:"analysts,omitempty"`
	ResearchDepth int         `json:"research_depth,omitempty"`
	State         State       `json:"state"`
	Decision      interface{} `json:"decision"`
	Error         string      `json:"error,omitempty"`
	Suggestion    string      `json:"suggestion,omitempty"`
}
