package service

import (
	"context"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/Yotam17/nl2sql/internal/models"
	"github.com/Yotam17/nl2sql/internal/plan"
)

// PostgresService hands out single-use connections. Nothing is pooled: each
// caller connects, does its work and closes the session on every exit path.
type PostgresService struct {
	cfg *pgx.ConnConfig
}

// NewPostgresService parses databaseURL; no connection is made.
func NewPostgresService(databaseURL string) (*PostgresService, error) {
	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	return &PostgresService{cfg: cfg}, nil
}

// Connect opens a new session. The caller must Close it.
func (s *PostgresService) Connect(ctx context.Context) (*Session, error) {
	conn, err := pgx.ConnectConfig(ctx, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s:%d/%s: %w", s.cfg.Host, s.cfg.Port, s.cfg.Database, err)
	}
	return &Session{conn: conn}, nil
}

// TestConnection verifies database connectivity
func (s *PostgresService) TestConnection(ctx context.Context) error {
	sess, err := s.Connect(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)
	return sess.conn.Ping(ctx)
}

// WaitReady retries TestConnection with exponential backoff until it
// succeeds or maxWait elapses.
func (s *PostgresService) WaitReady(ctx context.Context, maxWait time.Duration) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxWait
	return backoff.Retry(func() error {
		err := s.TestConnection(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("database not ready")
		}
		return err
	}, backoff.WithContext(policy, ctx))
}

// ListColumns connects, lists the public schema's columns and disconnects.
func (s *PostgresService) ListColumns(ctx context.Context) ([]ColumnInfo, error) {
	sess, err := s.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close(ctx)
	return sess.Columns(ctx)
}

// Execute connects, runs sql read-only within timeout and disconnects.
func (s *PostgresService) Execute(ctx context.Context, sql string, timeout time.Duration) (*QueryResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	sess, err := s.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close(context.Background())
	return sess.Query(ctx, sql)
}

// Session is one open database connection.
type Session struct {
	conn *pgx.Conn
}

func (s *Session) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// Explain returns the planner's estimate for sql without executing it.
func (s *Session) Explain(ctx context.Context, sql string) (*plan.Node, error) {
	var raw []byte
	if err := s.conn.QueryRow(ctx, "EXPLAIN (FORMAT JSON) "+sql).Scan(&raw); err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}
	return plan.ParseExplainJSON(raw)
}

// QueryResult holds the result of a statement execution
type QueryResult struct {
	Columns         []string
	Values          [][]any
	Rows            []models.Row
	ExecutionTimeMs int64
}

// Query runs sql inside a read-only transaction and converts every value to
// a JSON-safe form.
func (s *Session) Query(ctx context.Context, sql string) (*QueryResult, error) {
	start := time.Now()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &QueryResult{
		Columns: make([]string, len(fields)),
		Values:  [][]any{},
		Rows:    []models.Row{},
	}
	for i, f := range fields {
		result.Columns[i] = f.Name
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range vals {
			vals[i] = ConvertValue(fields[i].DataTypeOID, v)
		}
		result.Values = append(result.Values, vals)
		result.Rows = append(result.Rows, models.NewRow(result.Columns, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	log.Debug().
		Int("rows", len(result.Rows)).
		Int64("duration_ms", result.ExecutionTimeMs).
		Msg("query executed")
	return result, nil
}

// ColumnInfo describes one column of a public table.
type ColumnInfo struct {
	Table    string
	Column   string
	DataType string
}

// Columns lists the columns of every table in the public schema, in table
// and ordinal order.
func (s *Session) Columns(ctx context.Context) ([]ColumnInfo, error) {
	query, args, err := sq.Select("table_name", "column_name", "data_type").
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": "public"}).
		OrderBy("table_name", "ordinal_position").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		if err := rows.Scan(&c.Table, &c.Column, &c.DataType); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// ConvertValue maps a decoded column value onto a transport-safe form:
// dates become YYYY-MM-DD, timestamps RFC 3339, times HH:MM:SS, numerics
// float64 (NaN and infinities as their Postgres text), binary text and uuids
// their canonical string.
func ConvertValue(oid uint32, v any) any {
	switch val := v.(type) {
	case time.Time:
		if oid == pgtype.DateOID {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339Nano)
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return finite(f.Float64)
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case pgtype.Time:
		if !val.Valid {
			return nil
		}
		return formatTimeOfDay(val.Microseconds)
	case [16]byte:
		return uuid.UUID(val).String()
	case []byte:
		return string(val)
	case pgtype.Interval:
		if !val.Valid {
			return nil
		}
		d := time.Duration(val.Microseconds)*time.Microsecond +
			time.Duration(val.Days)*24*time.Hour
		if val.Months != 0 {
			return fmt.Sprintf("%d mons %s", val.Months, d)
		}
		return d.String()
	default:
		return v
	}
}

// finite returns f, or its Postgres spelling when JSON cannot carry it.
func finite(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}

func formatTimeOfDay(us int64) string {
	sec := us / 1_000_000
	out := fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
	if frac := us % 1_000_000; frac != 0 {
		out += fmt.Sprintf(".%06d", frac)
	}
	return out
}
