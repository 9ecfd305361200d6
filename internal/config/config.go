package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Yotam17/nl2sql/internal/guardrail"
)

type Config struct {
	// Server
	Host        string `json:"host" envconfig:"HOST"`
	Port        int    `json:"port" envconfig:"PORT"`
	Environment string `json:"environment" envconfig:"ENV"`
	APIPrefix   string `json:"api_prefix" envconfig:"API_PREFIX"`
	LogLevel    string `json:"log_level" envconfig:"LOG_LEVEL"`

	// CORS
	CORSOrigins []string `json:"cors_origins" envconfig:"CORS_ORIGINS"`

	// Rate Limiting; a non-empty RedisURL shares the counters across replicas
	RateLimitPerMinute int    `json:"rate_limit_per_minute" envconfig:"RATE_LIMIT_PER_MINUTE"`
	RedisURL           string `json:"redis_url" envconfig:"REDIS_URL"`

	// Database
	DatabaseURL string `json:"database_url" envconfig:"DATABASE_URL"`

	// AI / LLM
	LLMProvider      string `json:"llm_provider" envconfig:"LLM_PROVIDER"` // anthropic | gemini
	AnthropicAPIKey  string `json:"anthropic_api_key" envconfig:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `json:"anthropic_base_url" envconfig:"ANTHROPIC_BASE_URL"`
	GeminiAPIKey     string `json:"gemini_api_key" envconfig:"GEMINI_API_KEY"`
	Model            string `json:"model" envconfig:"MODEL"`
	AgentTimeout     int    `json:"agent_timeout" envconfig:"AGENT_TIMEOUT"`

	// Pipeline
	SchemaFile  string `json:"schema_file" envconfig:"SCHEMA_FILE"`
	DownloadDir string `json:"download_dir" envconfig:"DOWNLOAD_DIR"`

	// Guardrails
	RequireLimit       bool  `json:"require_limit" envconfig:"REQUIRE_LIMIT"`
	MaxRootRows        int64 `json:"max_root_rows" envconfig:"MAX_ROOT_ROWS"`
	MaxNodeBytes       int64 `json:"max_node_bytes" envconfig:"MAX_NODE_BYTES"`
	MaxSeqScanRows     int64 `json:"max_seqscan_rows" envconfig:"MAX_SEQSCAN_ROWS"`
	MaxSortRowsNoLimit int64 `json:"max_sort_rows_no_limit" envconfig:"MAX_SORT_ROWS_NO_LIMIT"`
	MaxNestedLoopSides int64 `json:"max_nested_loop_sides" envconfig:"MAX_NESTED_LOOP_SIDES"`
	DefaultLimit       int   `json:"default_limit" envconfig:"DEFAULT_LIMIT"`

	// Observability
	EnableAuditLogging bool `json:"enable_audit_logging" envconfig:"ENABLE_AUDIT_LOGGING"`
	MetricsEnabled     bool `json:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load builds the configuration from compiled defaults, an optional JSON file
// named by NL2SQL_CONFIG and NL2SQL_* environment variables, in that order.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("NL2SQL_CONFIG"); path != "" {
		if err := loadJSON(path, cfg); err != nil {
			return nil, err
		}
	}

	// Unprefixed names (DATABASE_URL, ANTHROPIC_API_KEY, ...) are accepted too.
	if err := envconfig.Process("NL2SQL", cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = defaultModel(cfg.LLMProvider)
	}
	return cfg, cfg.Validate()
}

// Default returns the compiled defaults.
func Default() *Config {
	return &Config{
		Host:               DefaultHost,
		Port:               DefaultPort,
		Environment:        DefaultEnvironment,
		APIPrefix:          DefaultAPIPrefix,
		LogLevel:           DefaultLogLevel,
		CORSOrigins:        DefaultCORSOrigins,
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		DatabaseURL:        DefaultDatabaseURL,
		LLMProvider:        DefaultLLMProvider,
		AgentTimeout:       DefaultAgentTimeout,
		SchemaFile:         DefaultSchemaFile,
		DownloadDir:        DefaultDownloadDir,
		RequireLimit:       DefaultRequireLimit,
		MaxRootRows:        DefaultMaxRootRows,
		MaxNodeBytes:       DefaultMaxNodeBytes,
		MaxSeqScanRows:     DefaultMaxSeqScanRows,
		MaxSortRowsNoLimit: DefaultMaxSortRowsNoLimit,
		MaxNestedLoopSides: DefaultMaxNestedLoopSides,
		DefaultLimit:       DefaultLimit,
		EnableAuditLogging: true,
		MetricsEnabled:     true,
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "anthropic", "gemini":
	default:
		return fmt.Errorf("llm_provider must be anthropic or gemini, got %q", c.LLMProvider)
	}
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Thresholds returns the guardrail policy described by the configuration.
func (c *Config) Thresholds() guardrail.Thresholds {
	return guardrail.Thresholds{
		RequireLimit:       c.RequireLimit,
		MaxRootRows:        c.MaxRootRows,
		MaxNodeBytes:       c.MaxNodeBytes,
		MaxSeqScanRows:     c.MaxSeqScanRows,
		MaxSortRowsNoLimit: c.MaxSortRowsNoLimit,
		MaxNestedLoopSides: c.MaxNestedLoopSides,
		DefaultLimit:       c.DefaultLimit,
	}
}

func defaultModel(provider string) string {
	if provider == "gemini" {
		return DefaultGeminiModel
	}
	return DefaultAnthropicModel
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}
