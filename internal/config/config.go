package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
	LLM        LLMConfig        `yaml:"llm" envconfig:"LLM"`
	Validation ValidationConfig `yaml:"validation" envconfig:"VALIDATION"`
	Exports    ExportsConfig    `yaml:"exports" envconfig:"EXPORTS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	// AnalysisTimeout bounds one analysis run end to end. Engine runs are
	// minutes-scale, so this is deliberately generous.
	AnalysisTimeout time.Duration `yaml:"analysis_timeout" envconfig:"ANALYSIS_TIMEOUT" default:"2h"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// LLMConfig configures the chat-completion backend used by the engine
type LLMConfig struct {
	Provider   string `yaml:"provider" envconfig:"PROVIDER" default:"deepseek"`
	BaseURL    string `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.deepseek.com/v1"`
	APIKey     string `yaml:"api_key" envconfig:"API_KEY"`
	DeepModel  string `yaml:"deep_model" envconfig:"DEEP_MODEL" default:"deepseek-chat"`
	QuickModel string `yaml:"quick_model" envconfig:"QUICK_MODEL" default:"deepseek-chat"`
}

// ValidationConfig bounds the data-preparation check that gates analysis runs
type ValidationConfig struct {
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"10s"`
}

// ExportsConfig configures optional report export of completed analyses
type ExportsConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	Dir     string `yaml:"dir" envconfig:"DIR" default:"reports"`
}

// Load loads configuration from environment variables and config file.
// Environment variables take precedence over file values.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("TP", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// getConfigFilePath returns the config file location, overridable via env
func getConfigFilePath() string {
	if path := os.Getenv("TP_CONFIG_FILE"); path != "" {
		return path
	}
	return "tradepulse.yml"
}

// mergeConfigs overlays env-derived values on top of file values.
// Non-zero env values win.
func mergeConfigs(file, env Config) Config {
	merged := file

	if env.Server.Port != 0 {
		merged.Server.Port = env.Server.Port
	}
	if env.Server.ReadTimeout != 0 {
		merged.Server.ReadTimeout = env.Server.ReadTimeout
	}
	if env.Server.WriteTimeout != 0 {
		merged.Server.WriteTimeout = env.Server.WriteTimeout
	}
	if env.Server.IdleTimeout != 0 {
		merged.Server.IdleTimeout = env.Server.IdleTimeout
	}
	if env.Server.ShutdownTimeout != 0 {
		merged.Server.ShutdownTimeout = env.Server.ShutdownTimeout
	}
	if env.Server.AnalysisTimeout != 0 {
		merged.Server.AnalysisTimeout = env.Server.AnalysisTimeout
	}
	if len(env.Security.AllowedOrigins) > 0 {
		merged.Security.AllowedOrigins = env.Security.AllowedOrigins
	}
	if env.Logging.Level != "" {
		merged.Logging.Level = env.Logging.Level
	}
	if env.Logging.Format != "" {
		merged.Logging.Format = env.Logging.Format
	}
	if env.Logging.Output != "" {
		merged.Logging.Output = env.Logging.Output
	}
	if env.Logging.FilePath != "" {
		merged.Logging.FilePath = env.Logging.FilePath
	}
	if env.LLM.Provider != "" {
		merged.LLM.Provider = env.LLM.Provider
	}
	if env.LLM.BaseURL != "" {
		merged.LLM.BaseURL = env.LLM.BaseURL
	}
	if env.LLM.APIKey != "" {
		merged.LLM.APIKey = env.LLM.APIKey
	}
	if env.LLM.DeepModel != "" {
		merged.LLM.DeepModel = env.LLM.DeepModel
	}
	if env.LLM.QuickModel != "" {
		merged.LLM.QuickModel = env.LLM.QuickModel
	}
	if env.Validation.Timeout != 0 {
		merged.Validation.Timeout = env.Validation.Timeout
	}
	if env.Exports.Dir != "" {
		merged.Exports.Dir = env.Exports.Dir
	}
	merged.Exports.Enabled = env.Exports.Enabled || file.Exports.Enabled
	merged.Security.RateLimit = env.Security.RateLimit
	merged.WebSocket = env.WebSocket

	return merged
}

// validate checks configuration invariants
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Validation.Timeout <= 0 {
		return fmt.Errorf("validation timeout must be positive, got %s", c.Validation.Timeout)
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive when enabled, got %f", c.Security.RateLimit.RPS)
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base_url is required")
	}
	return nil
}
