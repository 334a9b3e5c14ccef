package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Point at a nonexistent file so a developer's local config cannot
	// leak into the test
	t.Setenv("TP_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yml"))

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Server.AnalysisTimeout)
	assert.Equal(t, 10*time.Second, cfg.Validation.Timeout)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.LLM.DeepModel)
	assert.True(t, cfg.Security.EnableCORS)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.False(t, cfg.Exports.Enabled)
	assert.Equal(t, "reports", cfg.Exports.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TP_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yml"))
	t.Setenv("TP_SERVER_PORT", "9090")
	t.Setenv("TP_SERVER_ANALYSIS_TIMEOUT", "45m")
	t.Setenv("TP_LLM_PROVIDER", "openai")
	t.Setenv("TP_LLM_API_KEY", "sk-test")
	t.Setenv("TP_EXPORTS_ENABLED", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 45*time.Minute, cfg.Server.AnalysisTimeout)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.True(t, cfg.Exports.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	// Defaulted fields always resolve through the env layer; the file
	// supplies the undefaulted ones, like credentials and export opt-in
	dir := t.TempDir()
	configFile := filepath.Join(dir, "tradepulse.yml")
	content := `
llm:
  api_key: sk-from-file
exports:
  enabled: true
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))
	t.Setenv("TP_CONFIG_FILE", configFile)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.LLM.APIKey)
	assert.True(t, cfg.Exports.Enabled)
	assert.Equal(t, 8080, cfg.Server.Port, "defaults still apply for fields the file omits")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "tradepulse.yml")
	require.NoError(t, os.WriteFile(configFile, []byte("llm:\n  api_key: sk-from-file\n"), 0o644))
	t.Setenv("TP_CONFIG_FILE", configFile)
	t.Setenv("TP_LLM_API_KEY", "sk-from-env")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey, "env values win over file values")
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("TP_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yml"))
	t.Setenv("TP_SERVER_PORT", "99999")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "tradepulse.yml")
	require.NoError(t, os.WriteFile(configFile, []byte("server: [not a map"), 0o644))
	t.Setenv("TP_CONFIG_FILE", configFile)

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestValidateRateLimit(t *testing.T) {
	cfg := &Config{
		Server:     ServerConfig{Port: 8080},
		Validation: ValidationConfig{Timeout: time.Second},
		LLM:        LLMConfig{BaseURL: "https://api.deepseek.com/v1"},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{Enabled: true, RPS: 0},
		},
	}

	err := cfg.validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit rps")
}
