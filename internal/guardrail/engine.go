package guardrail

import (
	"context"
	"fmt"

	"github.com/Yotam17/nl2sql/internal/plan"
	"github.com/rs/zerolog/log"
)

// Reason and notice texts.
const (
	NoticeNoLimit          = "Query plan has no LIMIT operator."
	ReasonTooManyBytes     = "Operators process too many bytes (estimated)."
	ReasonHeavySeqScan     = "Heavy sequential scans on large tables."
	ReasonSortWithoutLimit = "Large SORT without LIMIT upstream."
	ReasonHeavyNestedLoop  = "Heavy nested loop join (both sides large)."
	ReasonLargeAggregate   = "Large aggregation operations."
	ReasonCrossJoin        = "Possible cross join (no join condition found)."
)

// ReasonTooManyRows is the reason recorded when the root estimate exceeds MaxRootRows.
func ReasonTooManyRows(rows int64) string {
	return fmt.Sprintf("Estimated result too large (%d rows).", rows)
}

// PlanSource produces a plan estimate for a statement without running it.
type PlanSource interface {
	Explain(ctx context.Context, sql string) (*plan.Node, error)
}

// Result is the outcome of one evaluation. SQL is always the statement that
// was evaluated; the engine never rewrites it.
type Result struct {
	OK       bool
	SQL      string
	Findings *Findings
	Reasons  []string
	Notices  []string
}

// Engine applies a fixed set of thresholds to plan estimates.
type Engine struct {
	thresholds Thresholds
}

func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// Thresholds returns the policy the engine was built with.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate obtains the plan estimate for sql and applies the policy. A plan
// that cannot be obtained rejects the statement.
func (e *Engine) Evaluate(ctx context.Context, src PlanSource, sql string) Result {
	root, err := src.Explain(ctx, sql)
	if err == nil && root == nil {
		err = plan.ErrEmptyPlan
	}
	if err != nil {
		f := newFindings()
		f.Reasons = append(f.Reasons, fmt.Sprintf("EXPLAIN failed: %v", err))
		log.Warn().Err(err).Msg("guardrail: plan estimate unavailable, rejecting")
		return e.result(false, sql, f)
	}

	f := Analyze(root, e.thresholds)
	ok := Decide(f, e.thresholds)
	return e.result(ok, sql, f)
}

func (e *Engine) result(ok bool, sql string, f *Findings) Result {
	return Result{
		OK:       ok,
		SQL:      sql,
		Findings: f,
		Reasons:  append([]string{}, f.Reasons...),
		Notices:  append([]string{}, f.Notices...),
	}
}

// Decide evaluates the rules in order, appending to f.Reasons and f.Notices,
// and reports whether the plan is acceptable. Every rule can reject on its
// own; a missing LIMIT operator is only a notice.
func Decide(f *Findings, t Thresholds) bool {
	ok := true
	reject := func(reason string) {
		f.Reasons = append(f.Reasons, reason)
		ok = false
	}

	if t.RequireLimit && !f.LimitPresent {
		f.Notices = append(f.Notices, NoticeNoLimit)
	}
	if f.RootRows > t.MaxRootRows {
		reject(ReasonTooManyRows(f.RootRows))
	}
	if f.MaxNodeBytes > t.MaxNodeBytes {
		reject(ReasonTooManyBytes)
	}
	if len(f.SeqScansHeavy) > 0 {
		reject(ReasonHeavySeqScan)
	}
	// Per-node sorts are checked against the tree-wide LIMIT flag.
	if len(f.SortNodes) > 0 && !f.LimitPresent {
		reject(ReasonSortWithoutLimit)
	}
	if len(f.NestedLoopHeavy) > 0 {
		reject(ReasonHeavyNestedLoop)
	}
	if len(f.LargeAggregates) > 0 {
		reject(ReasonLargeAggregate)
	}
	if f.PossibleCrossJoin {
		reject(ReasonCrossJoin)
	}
	return ok
}
