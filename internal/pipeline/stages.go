package pipeline

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog/log"

	"github.com/Yotam17/nl2sql/internal/agent"
	"github.com/Yotam17/nl2sql/internal/guardrail"
	"github.com/Yotam17/nl2sql/internal/metrics"
	"github.com/Yotam17/nl2sql/internal/models"
	"github.com/Yotam17/nl2sql/internal/service"
	"github.com/Yotam17/nl2sql/internal/sqlnorm"
	"github.com/Yotam17/nl2sql/internal/viz"
)

// Notices recorded by the stages.
const (
	NoticeIntentFallback    = "Intent detection unavailable, using keyword fallback"
	NoticeSQLFallback       = "Using fallback query"
	NoticeSkippingGuardrail = "Skipping guardrails and proceeding with query execution"
	NoticeMockData          = "Using mock data instead"
	NoticeVizFallback       = "Using fallback chart"
)

func fallback(stage Stage, err error) {
	metrics.StageFallbacks.WithLabelValues(string(stage)).Inc()
	log.Warn().Err(err).Str("stage", string(stage)).Msg("stage fell back")
}

func (p *Pipeline) detectIntent(ctx context.Context, s *State) (*State, error) {
	text, err := p.deps.Generator.Generate(ctx, agent.IntentPrompt(s.Query), agent.IntentMaxTokens)
	if err == nil {
		if intent, ok := service.ParseIntent(text); ok {
			s.Intent = intent
			return s, nil
		}
		err = fmt.Errorf("unrecognized intent %q", text)
	}

	res := p.classifier.Intent(s.Query)
	s.Intent = res.Intent
	s.notice(NoticeIntentFallback)
	fallback(StageDetectIntent, err)
	log.Debug().Strs("matched", res.Matched).Str("intent", string(res.Intent)).Msg(res.Reasoning)
	return s, nil
}

func (p *Pipeline) generateSQL(ctx context.Context, s *State) (*State, error) {
	limit := p.deps.Engine.Thresholds().DefaultLimit
	schema := p.deps.Schema.Schema(ctx)

	raw, err := p.deps.Generator.Generate(ctx, agent.SQLPrompt(schema, s.Query), agent.SQLMaxTokens)
	if err == nil && strings.TrimSpace(sqlnorm.StripComments(sqlnorm.StripFences(raw))) == "" {
		err = fmt.Errorf("empty SQL from generator")
	}
	if err != nil {
		s.notice(fmt.Sprintf("SQL generation failed: %v", err), NoticeSQLFallback)
		fallback(StageGenerateSQL, err)
		raw = FallbackSQL(s.Query)
	}

	sql, notices := sqlnorm.Normalize(raw, limit)
	s.SQL = sql
	s.notice(notices...)
	log.Debug().Str("sql", sql).Msg("sql generated")
	return s, nil
}

// FallbackSQL picks a minimal statement by keyword match on the question.
func FallbackSQL(query string) string {
	table := "customers"
	if strings.Contains(strings.ToLower(query), "orders") {
		table = "orders"
	}
	sql, _, _ := sq.Select("*").From(table).Limit(5).ToSql()
	return sql + ";"
}

// applyGuardrails fails open: if the plan cannot be evaluated at all the
// statement proceeds with notices. The engine itself fails closed when the
// plan estimate is unavailable on a working connection.
func (p *Pipeline) applyGuardrails(ctx context.Context, s *State) (*State, error) {
	res, err := p.evaluate(ctx, s.SQL)
	if err != nil {
		s.notice(fmt.Sprintf("Guardrail check failed: %v", err), NoticeSkippingGuardrail)
		s.GuardrailOK = true
		s.Reasons = []string{}
		metrics.GuardrailDecisions.WithLabelValues("skipped").Inc()
		fallback(StageApplyGuardrails, err)
		return s, nil
	}

	s.SQL = res.SQL
	s.notice(res.Notices...)
	s.Findings = res.Findings
	s.Reasons = res.Reasons
	s.GuardrailOK = res.OK

	if !res.OK {
		s.Rows = []models.Row{}
		metrics.GuardrailDecisions.WithLabelValues("rejected").Inc()
		for _, r := range res.Reasons {
			metrics.GuardrailReasons.WithLabelValues(reasonLabel(r)).Inc()
		}
		log.Info().Strs("reasons", res.Reasons).Str("sql", res.SQL).Msg("query blocked by guardrails")
		return s, nil
	}
	metrics.GuardrailDecisions.WithLabelValues("accepted").Inc()
	return s, nil
}

func (p *Pipeline) evaluate(ctx context.Context, sql string) (res guardrail.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	sess, err := p.deps.Connect(ctx)
	if err != nil {
		return res, err
	}
	defer sess.Close(ctx)

	return p.deps.Engine.Evaluate(ctx, sess, sql), nil
}

func reasonLabel(reason string) string {
	switch reason {
	case guardrail.ReasonTooManyBytes:
		return "node_bytes"
	case guardrail.ReasonHeavySeqScan:
		return "seq_scan"
	case guardrail.ReasonSortWithoutLimit:
		return "sort_without_limit"
	case guardrail.ReasonHeavyNestedLoop:
		return "nested_loop"
	case guardrail.ReasonLargeAggregate:
		return "aggregate"
	case guardrail.ReasonCrossJoin:
		return "cross_join"
	}
	switch {
	case strings.HasPrefix(reason, "Estimated result too large"):
		return "root_rows"
	case strings.HasPrefix(reason, "EXPLAIN failed"):
		return "explain_failed"
	}
	return "other"
}

func (p *Pipeline) executeSQL(ctx context.Context, s *State) (*State, error) {
	result, err := p.query(ctx, s.SQL)
	if err != nil {
		s.notice(fmt.Sprintf("SQL execution failed: %v", err), NoticeMockData)
		s.Rows = MockRows(s.SQL)
		fallback(StageExecuteSQL, err)
		return s, nil
	}
	s.Rows = result.Rows
	return s, nil
}

func (p *Pipeline) query(ctx context.Context, sql string) (*service.QueryResult, error) {
	sess, err := p.deps.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close(ctx)
	return sess.Query(ctx, sql)
}

// MockRows is the demo dataset substituted when execution fails. It is
// chosen by table name in the statement and is not real data.
func MockRows(sql string) []models.Row {
	lower := strings.ToLower(sql)
	switch {
	case strings.Contains(lower, "customers"):
		cols := []string{"id", "name", "country"}
		return []models.Row{
			models.NewRow(cols, []any{1, "Alice", "United States"}),
			models.NewRow(cols, []any{2, "Bob", "United Kingdom"}),
			models.NewRow(cols, []any{3, "Charlie", "Germany"}),
		}
	case strings.Contains(lower, "orders"):
		cols := []string{"id", "customer_id", "order_date", "total_amount"}
		return []models.Row{
			models.NewRow(cols, []any{1, 1, "2024-01-15", 120.50}),
			models.NewRow(cols, []any{2, 2, "2024-01-16", 89.99}),
		}
	default:
		return []models.Row{}
	}
}

func (p *Pipeline) generateVizSpec(ctx context.Context, s *State) (*State, error) {
	if len(s.Rows) == 0 {
		s.VizSpec = viz.NoData()
		return s, nil
	}

	text, err := p.deps.Generator.Generate(ctx, viz.Prompt(s.Query, s.Rows), agent.VizMaxTokens)
	if err == nil {
		var spec viz.Spec
		if spec, err = viz.Parse(text, s.Rows); err == nil {
			s.VizSpec = spec
			return s, nil
		}
	}

	s.notice(fmt.Sprintf("Chart generation failed: %v", err), NoticeVizFallback)
	s.VizSpec = viz.Fallback(s.Rows)
	fallback(StageGenerateVizSpec, err)
	return s, nil
}

func (p *Pipeline) decideAction(_ context.Context, s *State) (*State, error) {
	s.Action = p.classifier.Action(s.Query)
	return s, nil
}

func (p *Pipeline) download(_ context.Context, s *State) (*State, error) {
	path, err := p.deps.Sink.Save(s.Rows)
	if err != nil {
		s.notice(fmt.Sprintf("Saving the result failed: %v", err))
		log.Error().Err(err).Msg("file sink failed")
		return s, nil
	}
	s.FilePath = path
	return s, nil
}

func (p *Pipeline) display(_ context.Context, s *State) (*State, error) {
	return s, nil
}
