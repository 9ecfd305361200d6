// Package sqlnorm cleans generated SQL text and guarantees it carries a
// row-limiting clause and a single trailing terminator.
package sqlnorm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	reOpenFence  = regexp.MustCompile("^```(?:[A-Za-z]+[ \t]*\r?\n|(?i:sql|json)\\b)?")
	reCloseFence = regexp.MustCompile("\r?\n?```$")

	reLimit = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+|ALL|\$\d+)|\bFETCH\s+(FIRST|NEXT)\b`)
)

// LimitNotice is the notice emitted when a LIMIT clause had to be appended.
func LimitNotice(limit int) string {
	return fmt.Sprintf("Added LIMIT %d for safety.", limit)
}

// Normalize strips code fences, a {"sql": ...} envelope and SQL comments,
// appends a LIMIT clause when the outer query has none and ends the
// statement with exactly one ';'.
// It returns the notices produced; applying it to its own output is a no-op.
func Normalize(raw string, defaultLimit int) (string, []string) {
	sql := StripFences(raw)
	sql = unwrapEnvelope(sql)
	sql = StripComments(sql)
	sql = trimTerminators(sql)

	var notices []string
	if !HasLimit(sql) {
		sql = strings.TrimSpace(fmt.Sprintf("%s LIMIT %d", sql, defaultLimit))
		notices = append(notices, LimitNotice(defaultLimit))
	}
	return sql + ";", notices
}

// StripFences removes a leading ```lang marker and a trailing ``` marker.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = reOpenFence.ReplaceAllString(s, "")
	s = reCloseFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// HasLimit reports whether the outer query already limits its row count.
// A LIMIT inside a subquery, a literal or a comment does not count.
func HasLimit(sql string) bool {
	return reLimit.MatchString(topLevel(sql))
}

// StripComments removes -- line comments and /* */ block comments (nesting
// allowed) outside string literals and quoted identifiers. Each block
// comment is replaced by a space.
func StripComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))
	scan(sql, func(c byte, inQuote bool) {
		b.WriteByte(c)
	}, func() { b.WriteByte(' ') })
	return b.String()
}

// topLevel returns sql with comments removed and literals, quoted
// identifiers and parenthesized text blanked, so only outer-query keywords
// remain visible.
func topLevel(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))
	depth := 0
	scan(sql, func(c byte, inQuote bool) {
		switch {
		case inQuote:
			b.WriteByte(' ')
		case c == '(':
			depth++
			b.WriteByte(' ')
		case c == ')':
			if depth > 0 {
				depth--
			}
			b.WriteByte(' ')
		case depth > 0:
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}, func() { b.WriteByte(' ') })
	return b.String()
}

// scan walks sql calling emit for every byte outside comments, flagging
// bytes that belong to a quoted literal or identifier (quotes included).
// comment is called once per block comment.
func scan(sql string, emit func(c byte, inQuote bool), comment func()) {
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if quote != 0 {
			emit(c, true)
			if c == quote {
				if i+1 < len(sql) && sql[i+1] == quote {
					i++
					emit(sql[i], true)
					continue
				}
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
			emit(c, true)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			if i < len(sql) {
				emit('\n', false)
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			depth := 0
			for ; i < len(sql); i++ {
				if sql[i] == '/' && i+1 < len(sql) && sql[i+1] == '*' {
					depth++
					i++
				} else if sql[i] == '*' && i+1 < len(sql) && sql[i+1] == '/' {
					depth--
					i++
					if depth == 0 {
						break
					}
				}
			}
			comment()
		default:
			emit(c, false)
		}
	}
}

func unwrapEnvelope(s string) string {
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") || !gjson.Valid(s) {
		return s
	}
	v := gjson.Get(s, "sql")
	if v.Type != gjson.String {
		return s
	}
	return StripFences(v.String())
}

func trimTerminators(s string) string {
	for {
		t := strings.TrimRight(strings.TrimSpace(s), ";")
		if t == s {
			return s
		}
		s = t
	}
}
