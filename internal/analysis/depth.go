package analysis

// ModelProvider names the chat-completion backend and the model pair
// an execution uses
type ModelProvider struct {
	Name       string
	DeepModel  string
	QuickModel string
}

// DefaultProvider mirrors the production default backend
var DefaultProvider = ModelProvider{
	Name:       "deepseek",
	DeepModel:  "deepseek-chat",
	QuickModel: "deepseek-chat",
}

// ExecutionConfig is the detailed execution configuration derived from
// a request's research depth. Immutable after creation; passed by value.
type ExecutionConfig struct {
	LLMProvider          string
	DeepThinkModel       string
	QuickThinkModel      string
	MaxDebateRounds      int
	MaxRiskDiscussRounds int
	MemoryEnabled        bool
	OnlineTools          bool
}

// DeriveConfig maps a research depth to an ExecutionConfig using the
// default provider. See DeriveConfigFor for the tier table.
func DeriveConfig(depth int) ExecutionConfig {
	return DeriveConfigFor(DefaultProvider, depth)
}

// DeriveConfigFor maps a research depth to an ExecutionConfig.
//
// Tiers increase thoroughness monotonically:
//
//	1, 2       -> 1 debate round, 1 risk round
//	3          -> 1 debate round, 2 risk rounds
//	4          -> 2 debate rounds, 2 risk rounds
//	everything -> 3 debate rounds, 3 risk rounds
//
// Any depth outside 1-4 falls through to the most thorough tier; that
// is a safe default, not a validation failure. Memory and online tools
// are always enabled.
func DeriveConfigFor(provider ModelProvider, depth int) ExecutionConfig {
	cfg := ExecutionConfig{
		LLMProvider:     provider.Name,
		DeepThinkModel:  provider.DeepModel,
		QuickThinkModel: provider.QuickModel,
		MemoryEnabled:   true,
		OnlineTools:     true,
	}

	switch depth {
	case 1, 2:
		cfg.MaxDebateRounds = 1
		cfg.MaxRiskDiscussRounds = 1
	case 3:
		cfg.MaxDebateRounds = 1
		cfg.MaxRiskDiscussRounds = 2
	case 4:
		cfg.MaxDebateRounds = 2
		cfg.MaxRiskDiscussRounds = 2
	default:
		cfg.MaxDebateRounds = 3
		cfg.MaxRiskDiscussRounds = 3
	}

	return cfg
}
