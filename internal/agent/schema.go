package agent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/Yotam17/nl2sql/internal/service"
)

const schemaCacheTTL = 5 * time.Minute

// FallbackSchema is used when neither the schema file nor the database can
// describe the tables.
const FallbackSchema = `customers(id, name, country)
orders(id, customer_id, order_date, total_amount)
items(id, order_id, sku, product_name, qty, unit_price)`

// ColumnLister returns the columns of the queryable tables.
type ColumnLister func(ctx context.Context) ([]service.ColumnInfo, error)

// SchemaLoader produces the schema text put into SQL prompts. It prefers a
// hand-written summary file, then live introspection, then FallbackSchema.
type SchemaLoader struct {
	path    string
	columns ColumnLister

	mu        sync.RWMutex
	text      string
	expiresAt time.Time
	sf        singleflight.Group // one introspection at a time
}

func NewSchemaLoader(path string, columns ColumnLister) *SchemaLoader {
	return &SchemaLoader{path: path, columns: columns}
}

// Schema never fails; every failure degrades to the next source.
func (l *SchemaLoader) Schema(ctx context.Context) string {
	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err == nil && len(strings.TrimSpace(string(data))) > 0 {
			return string(data)
		}
		if err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", l.path).Msg("read schema file failed")
		}
	}

	if text, ok := l.cached(); ok {
		return text
	}
	if l.columns == nil {
		return FallbackSchema
	}

	v, _, _ := l.sf.Do("schema", func() (interface{}, error) {
		if text, ok := l.cached(); ok {
			return text, nil
		}
		start := time.Now()
		cols, err := l.columns(ctx)
		if err != nil || len(cols) == 0 {
			log.Warn().Err(err).Msg("schema introspection failed, using built-in schema")
			return FallbackSchema, nil // not cached
		}
		text := FormatSchema(cols)
		l.store(text)
		log.Info().Int("columns", len(cols)).Dur("fetch_ms", time.Since(start)).Msg("schema cached")
		return text, nil
	})
	return v.(string)
}

// Invalidate drops the cached introspection result.
func (l *SchemaLoader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text = ""
	l.expiresAt = time.Time{}
}

func (l *SchemaLoader) cached() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.text == "" || time.Now().After(l.expiresAt) {
		return "", false
	}
	return l.text, true
}

func (l *SchemaLoader) store(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text = text
	l.expiresAt = time.Now().Add(schemaCacheTTL)
}

// FormatSchema renders columns as one "table(col type, ...)" line per table.
func FormatSchema(cols []service.ColumnInfo) string {
	var sb strings.Builder
	for i := 0; i < len(cols); {
		table := cols[i].Table
		var parts []string
		for ; i < len(cols) && cols[i].Table == table; i++ {
			parts = append(parts, fmt.Sprintf("%s %s", cols[i].Column, cols[i].DataType))
		}
		fmt.Fprintf(&sb, "%s(%s)\n", table, strings.Join(parts, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
