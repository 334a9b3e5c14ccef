package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveConfigPolicyTable(t *testing.T) {
	tests := []struct {
		name           string
		depth          int
		wantDebate     int
		wantRiskRounds int
	}{
		{"depth 1 quick", 1, 1, 1},
		{"depth 2 basic", 2, 1, 1},
		{"depth 3 standard", 3, 1, 2},
		{"depth 4 deep", 4, 2, 2},
		{"depth 5 full", 5, 3, 3},
		{"depth 0 falls through", 0, 3, 3},
		{"negative depth falls through", -1, 3, 3},
		{"huge depth falls through", 99, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DeriveConfig(tt.depth)

			assert.Equal(t, tt.wantDebate, cfg.MaxDebateRounds)
			assert.Equal(t, tt.wantRiskRounds, cfg.MaxRiskDiscussRounds)
			assert.True(t, cfg.MemoryEnabled, "memory is always enabled")
			assert.True(t, cfg.OnlineTools, "online tools are always enabled")
		})
	}
}

func TestDeriveConfigUsesDefaultProvider(t *testing.T) {
	cfg := DeriveConfig(3)

	assert.Equal(t, DefaultProvider.Name, cfg.LLMProvider)
	assert.Equal(t, DefaultProvider.DeepModel, cfg.DeepThinkModel)
	assert.Equal(t, DefaultProvider.QuickModel, cfg.QuickThinkModel)
}

func TestDeriveConfigForCustomProvider(t *testing.T) {
	provider := ModelProvider{Name: "openai", DeepModel: "gpt-4o", QuickModel: "gpt-4o-mini"}

	cfg := DeriveConfigFor(provider, 4)

	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "gpt-4o", cfg.DeepThinkModel)
	assert.Equal(t, "gpt-4o-mini", cfg.QuickThinkModel)
	assert.Equal(t, 2, cfg.MaxDebateRounds)
	assert.Equal(t, 2, cfg.MaxRiskDiscussRounds)
}
