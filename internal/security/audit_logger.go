package security

import (
	"crypto/sha256"
	"fmt"

	"github.com/rs/zerolog/log"
)

// AuditLogger logs security-relevant events with hashed identifiers
type AuditLogger struct {
	enabled bool
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

// LogQuery records a raw SQL execution event
func (a *AuditLogger) LogQuery(
	sql, requestID, clientIP string,
	executionTimeMs int64,
	rowCount int,
	success bool,
	errMsg string,
) {
	if !a.enabled {
		return
	}

	evt := log.Info().
		Str("event", "query_audit").
		Str("sql_hash", hashStr(sql)[:16]).
		Str("request_id", requestID).
		Str("client_ip_hash", hashStr(clientIP)[:16]).
		Int64("execution_time_ms", executionTimeMs).
		Int("row_count", rowCount).
		Bool("success", success)

	if errMsg != "" {
		evt = evt.Str("error", errMsg)
	}
	evt.Msg("audit")
}

// LogAsk records one natural-language pipeline invocation
func (a *AuditLogger) LogAsk(
	question, requestID, generatedSQL string,
	blocked bool,
	reasons []string,
	executionTimeMs int64,
) {
	if !a.enabled {
		return
	}
	sqlHash := ""
	if generatedSQL != "" {
		sqlHash = hashStr(generatedSQL)[:16]
	}

	log.Info().
		Str("event", "ask_audit").
		Str("question_hash", hashStr(question)[:16]).
		Str("request_id", requestID).
		Str("sql_hash", sqlHash).
		Bool("blocked", blocked).
		Strs("reasons", reasons).
		Int64("execution_time_ms", executionTimeMs).
		Msg("ask audit")
}

func hashStr(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
