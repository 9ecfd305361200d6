package config

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api/v1"
	DefaultLogLevel    = "info"

	DefaultRateLimitPerMinute = 60

	DefaultDatabaseURL = "postgres://app:app@db:5432/demo"

	DefaultLLMProvider    = "anthropic"
	DefaultAnthropicModel = "claude-3-5-sonnet-latest"
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultAgentTimeout   = 60 // seconds

	DefaultSchemaFile  = "docs/schema_summaries.md"
	DefaultDownloadDir = "downloads"

	// Guardrail policy
	DefaultRequireLimit       = true
	DefaultMaxRootRows        = 10_000
	DefaultMaxNodeBytes       = 50_000_000
	DefaultMaxSeqScanRows     = 10_000
	DefaultMaxSortRowsNoLimit = 10_000
	DefaultMaxNestedLoopSides = 5_000
	DefaultLimit              = 10
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}
