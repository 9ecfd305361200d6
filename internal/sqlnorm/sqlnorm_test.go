package sqlnorm_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/Yotam17/nl2sql/internal/sqlnorm"
)

var limitWord = regexp.MustCompile(`(?i)\bLIMIT\b`)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		notices int
	}{
		{"plain without limit", "SELECT * FROM customers", "SELECT * FROM customers LIMIT 10;", 1},
		{"terminator without limit", "SELECT * FROM customers;", "SELECT * FROM customers LIMIT 10;", 1},
		{"already limited", "SELECT * FROM orders LIMIT 5;", "SELECT * FROM orders LIMIT 5;", 0},
		{"lowercase limit", "select id from orders limit 3", "select id from orders limit 3;", 0},
		{"fetch first", "SELECT id FROM orders FETCH FIRST 3 ROWS ONLY", "SELECT id FROM orders FETCH FIRST 3 ROWS ONLY;", 0},
		{"sql fence", "```sql\nSELECT name FROM customers\n```", "SELECT name FROM customers LIMIT 10;", 1},
		{"bare fence", "```\nSELECT name FROM customers LIMIT 2;\n```", "SELECT name FROM customers LIMIT 2;", 0},
		{"inline fence", "```SELECT 1```", "SELECT 1 LIMIT 10;", 1},
		{"json envelope", `{"sql": "SELECT * FROM items"}`, "SELECT * FROM items LIMIT 10;", 1},
		{"json envelope in fence", "```json\n{\"sql\": \"SELECT * FROM items LIMIT 4;\"}\n```", "SELECT * FROM items LIMIT 4;", 0},
		{"envelope without sql key", `{"query": "x"}`, `{"query": "x"} LIMIT 10;`, 1},
		{"repeated terminators", "SELECT 1 ; ;;", "SELECT 1 LIMIT 10;", 1},
		{"limit inside literal", "SELECT * FROM customers WHERE name = 'limit 5'", "SELECT * FROM customers WHERE name = 'limit 5' LIMIT 10;", 1},
		{"trailing line comment", "SELECT * FROM customers -- every customer", "SELECT * FROM customers LIMIT 10;", 1},
		{"commented-out limit", "SELECT * FROM customers -- LIMIT 5", "SELECT * FROM customers LIMIT 10;", 1},
		{"leading comment", "-- top customers\nSELECT name FROM customers LIMIT 3", "SELECT name FROM customers LIMIT 3;", 0},
		{"comment marker in literal", "SELECT '--x' AS s FROM t LIMIT 2", "SELECT '--x' AS s FROM t LIMIT 2;", 0},
		{"block comment with limit", "SELECT * FROM orders /* LIMIT 5 */", "SELECT * FROM orders LIMIT 10;", 1},
		{"limit only in subquery", "SELECT * FROM (SELECT * FROM orders LIMIT 5) o", "SELECT * FROM (SELECT * FROM orders LIMIT 5) o LIMIT 10;", 1},
		{"limit in cte only", "WITH top AS (SELECT id FROM orders LIMIT 5) SELECT * FROM top", "WITH top AS (SELECT id FROM orders LIMIT 5) SELECT * FROM top LIMIT 10;", 1},
		{"outer limit after subquery", "SELECT * FROM (SELECT * FROM orders) o LIMIT 4", "SELECT * FROM (SELECT * FROM orders) o LIMIT 4;", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, notices := sqlnorm.Normalize(tt.in, 10)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if len(notices) != tt.notices {
				t.Errorf("Normalize(%q) notices = %v, want %d", tt.in, notices, tt.notices)
			}
		})
	}
}

func TestNormalizeAddsExactlyOneLimit(t *testing.T) {
	inputs := []string{
		"SELECT * FROM customers",
		"SELECT c.name, SUM(o.total_amount) FROM customers c JOIN orders o ON o.customer_id = c.id GROUP BY c.name ORDER BY 2 DESC",
		"```sql\nSELECT * FROM orders WHERE total_amount > 1000\n```",
		`{"sql":"SELECT country, COUNT(*) FROM customers GROUP BY country;"}`,
	}
	for _, in := range inputs {
		out, notices := sqlnorm.Normalize(in, 10)
		if n := len(limitWord.FindAllString(out, -1)); n != 1 {
			t.Errorf("Normalize(%q) = %q has %d LIMIT clauses, want 1", in, out, n)
		}
		if len(notices) != 1 || notices[0] != sqlnorm.LimitNotice(10) {
			t.Errorf("Normalize(%q) notices = %v, want one limit notice", in, notices)
		}
		if !strings.HasSuffix(out, ";") || strings.HasSuffix(out, ";;") {
			t.Errorf("Normalize(%q) = %q must end with exactly one terminator", in, out)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"SELECT * FROM customers",
		"```sql\nSELECT * FROM orders LIMIT 5\n```",
		`{"sql": "SELECT 1"}`,
		"SELECT 'a;b' FROM t;;",
		"SELECT * FROM customers -- every customer",
		"SELECT * FROM (SELECT 1 LIMIT 1) x /* nested /* note */ */",
		"",
	}
	for _, in := range inputs {
		once, _ := sqlnorm.Normalize(in, 25)
		twice, notices := sqlnorm.Normalize(once, 25)
		if twice != once {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
		if len(notices) != 0 {
			t.Errorf("second pass over %q produced notices %v", once, notices)
		}
	}
}

func TestHasLimit(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT 1 LIMIT 1", true},
		{"SELECT 1 FETCH FIRST 1 ROWS ONLY", true},
		{"SELECT * FROM (SELECT 1 LIMIT 1) x", false},
		{"SELECT 1 -- LIMIT 1", false},
		{"SELECT 'LIMIT 1'", false},
		{`SELECT "limit 1" FROM t`, false},
	}
	for _, tt := range tests {
		if got := sqlnorm.HasLimit(tt.sql); got != tt.want {
			t.Errorf("HasLimit(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
}
