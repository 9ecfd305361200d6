// Package security guards the raw SQL endpoint and records audit events.
package security

import (
	"errors"
	"regexp"
	"strings"
)

// sqlDangerousPatterns are rejected anywhere in the statement text.
var sqlDangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i);\s*DROP\s+`),
	regexp.MustCompile(`(?i);\s*DELETE\s+`),
	regexp.MustCompile(`(?i);\s*INSERT\s+`),
	regexp.MustCompile(`(?i);\s*UPDATE\s+`),
	regexp.MustCompile(`(?i);\s*ALTER\s+`),
	regexp.MustCompile(`(?i);\s*CREATE\s+`),
	regexp.MustCompile(`(?i);\s*TRUNCATE\s+`),
	regexp.MustCompile(`(?i);\s*EXECUTE\s+`),
	regexp.MustCompile(`(?i)\bUNION\s+SELECT\b`), // UNION ALL SELECT is allowed
	regexp.MustCompile(`(?i)\bpg_sleep\s*\(`),
	regexp.MustCompile(`(?i)\bpg_read_(binary_)?file\s*\(`),
	regexp.MustCompile(`(?i)\blo_(import|export)\s*\(`),
	regexp.MustCompile(`(?i)\bdblink\w*\s*\(`),
	regexp.MustCompile(`'.*--`),  // comment injection after string literal
	regexp.MustCompile(`;\s*--`), // statement terminator + comment
	regexp.MustCompile(`/\*.*?\*/`),
	regexp.MustCompile(`(?i)\bor\s+1\s*=\s*1\b`),
	regexp.MustCompile(`(?i)\band\s+1\s*=\s*1\b`),
	regexp.MustCompile(`(?i)\bor\s+'1'\s*=\s*'1'`),
	regexp.MustCompile(`(?i)\band\s+'1'\s*=\s*'1'`),
}

var (
	quoted = regexp.MustCompile(`'(?:[^']|'')*'|"(?:[^"]|"")*"`)

	// Keywords that make a statement write, lock or change session state,
	// even when nested in a CTE.
	writeKeywords = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|TRUNCATE|DROP|ALTER|CREATE|GRANT|REVOKE|COPY|CALL|DO|SET|LOCK|VACUUM|REFRESH)\b`)
	selectInto    = regexp.MustCompile(`(?i)\bINTO\b`)
	firstWord     = regexp.MustCompile(`^[\s(]*([A-Za-z]+)`)
)

// ErrNotReadOnly marks a statement Validate refused.
var ErrNotReadOnly = errors.New("statement is not a read-only selection")

// SQLValidator accepts a single read-only SELECT (optionally with CTEs).
type SQLValidator struct{}

func NewSQLValidator() *SQLValidator {
	return &SQLValidator{}
}

// Validate returns an error string if SQL is invalid, or empty string if OK
func (v *SQLValidator) Validate(sql string) string {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return "SQL cannot be empty"
	}

	// Keyword checks run on the text with literals and quoted identifiers blanked.
	bare := quoted.ReplaceAllString(trimmed, "''")

	m := firstWord.FindStringSubmatch(bare)
	if m == nil {
		return "only SELECT queries are allowed"
	}
	switch strings.ToUpper(m[1]) {
	case "SELECT", "WITH":
	default:
		return "only SELECT queries are allowed"
	}

	body := strings.TrimRight(strings.TrimSpace(bare), "; \t\r\n")
	if strings.Contains(body, ";") {
		return "multiple statements are not allowed"
	}
	if kw := writeKeywords.FindString(body); kw != "" {
		return "statement is not read-only: " + strings.ToUpper(kw)
	}
	if selectInto.MatchString(body) {
		return "SELECT INTO is not allowed"
	}

	for _, pattern := range sqlDangerousPatterns {
		if pattern.MatchString(sql) {
			return "SQL injection pattern detected: " + pattern.String()
		}
	}

	return ""
}
