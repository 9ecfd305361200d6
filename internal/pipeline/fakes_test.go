package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Yotam17/nl2sql/internal/models"
	"github.com/Yotam17/nl2sql/internal/pipeline"
	"github.com/Yotam17/nl2sql/internal/plan"
	"github.com/Yotam17/nl2sql/internal/service"
)

var errUnreachable = errors.New("dial tcp 10.0.0.1:443: connect: connection refused")

// fakeGenerator answers by prompt kind; an empty answer with a nil error for
// a kind means "fail".
type fakeGenerator struct {
	intent, sql, viz string
	err              error

	mu      sync.Mutex
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.err != nil {
		return "", g.err
	}
	switch {
	case strings.HasSuffix(prompt, "Intent:"):
		return g.intent, nil
	case strings.HasSuffix(prompt, "SQL:"):
		return g.sql, nil
	case strings.Contains(prompt, "Vega-Lite"):
		return g.viz, nil
	}
	return "", errors.New("unexpected prompt")
}

type fakeDB struct {
	plan       *plan.Node
	explainErr error
	panicOn    bool
	result     *service.QueryResult
	queryErr   error
	connectErr error

	mu      sync.Mutex
	opened  int
	closed  int
	queries []string
}

func (db *fakeDB) connect(context.Context) (pipeline.Session, error) {
	if db.connectErr != nil {
		return nil, db.connectErr
	}
	db.mu.Lock()
	db.opened++
	db.mu.Unlock()
	return &fakeSession{db: db}, nil
}

func (db *fakeDB) balanced() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.opened == db.closed
}

type fakeSession struct {
	db *fakeDB
}

func (s *fakeSession) Explain(context.Context, string) (*plan.Node, error) {
	if s.db.panicOn {
		panic("driver bug")
	}
	return s.db.plan, s.db.explainErr
}

func (s *fakeSession) Query(_ context.Context, sql string) (*service.QueryResult, error) {
	s.db.mu.Lock()
	s.db.queries = append(s.db.queries, sql)
	s.db.mu.Unlock()
	if s.db.queryErr != nil {
		return nil, s.db.queryErr
	}
	return s.db.result, nil
}

func (s *fakeSession) Close(context.Context) error {
	s.db.mu.Lock()
	s.db.closed++
	s.db.mu.Unlock()
	return nil
}

type staticSchema string

func (s staticSchema) Schema(context.Context) string { return string(s) }

type memorySink struct {
	saved [][]models.Row
}

func (m *memorySink) Save(rows []models.Row) (string, error) {
	m.saved = append(m.saved, rows)
	return "downloads/result_0000test.csv", nil
}

func smallPlan() *plan.Node {
	return &plan.Node{
		NodeType: plan.TypeLimit, EstimatedRows: 10, EstimatedWidth: 40,
		Children: []*plan.Node{{NodeType: plan.TypeSeqScan, RelationName: "customers", EstimatedRows: 3, EstimatedWidth: 40}},
	}
}

func customerResult() *service.QueryResult {
	cols := []string{"id", "name", "country"}
	vals := [][]any{{int64(1), "Dana", "Israel"}, {int64(2), "Noam", "Israel"}}
	res := &service.QueryResult{Columns: cols, Values: vals}
	for _, v := range vals {
		res.Rows = append(res.Rows, models.NewRow(cols, v))
	}
	return res
}
