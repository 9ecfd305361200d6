package agent

import (
	"fmt"
	"strings"
)

// Output caps per call site.
const (
	IntentMaxTokens = 10
	SQLMaxTokens    = 200
	VizMaxTokens    = 500
)

const intentPromptTemplate = `You classify questions asked to a data assistant.

Answer with exactly one word:
- "sql" if the user wants tabular data or the answer to a question about the data
- "viz" if the user wants a chart, graph, plot or any other visualization

Examples:
- "show me all customers" -> sql
- "how many orders did we get this week?" -> sql
- "make a graph of sales by month" -> viz
- "pie chart of product categories" -> viz
- "which products sell best?" -> sql

Question: %s

Intent:`

// IntentPrompt asks the model to classify query as sql or viz.
func IntentPrompt(query string) string {
	return fmt.Sprintf(intentPromptTemplate, query)
}

const sqlPromptTemplate = `You write PostgreSQL SELECT statements only.

Use this schema:
%s

Rules:
1. Produce a single SELECT statement, never INSERT, UPDATE, DELETE or DDL
2. Use the exact table and column names from the schema
3. Add a LIMIT unless the question asks otherwise
4. Use JOINs to relate tables when needed
5. Use ORDER BY and GROUP BY where appropriate
6. Return only the SQL: no explanation, no JSON, no backticks
7. Always wrap string values (countries, product names, customer names) in single quotes

Examples:
- "show me customers" -> SELECT * FROM customers LIMIT 10;
- "orders of customer 1" -> SELECT * FROM orders WHERE customer_id = 1 LIMIT 10;
- "all customers outside Israel" -> SELECT * FROM customers WHERE country != 'Israel' LIMIT 10;

Question: %s

SQL:`

// SQLPrompt asks the model for one read-only statement against schema.
func SQLPrompt(schema, query string) string {
	return fmt.Sprintf(sqlPromptTemplate, strings.TrimSpace(schema), query)
}
