package guardrail

import "github.com/Yotam17/nl2sql/internal/plan"

// SeqScanFinding records a full table scan above the scan threshold.
type SeqScanFinding struct {
	Relation string `json:"relation"`
	Rows     int64  `json:"rows"`
	Filter   string `json:"filter,omitempty"`
}

// SortFinding records a sort above the sort threshold.
type SortFinding struct {
	Rows int64 `json:"rows"`
}

// NestedLoopFinding records a nested loop whose two inputs are both large.
type NestedLoopFinding struct {
	Left  int64 `json:"left"`
	Right int64 `json:"right"`
}

// AggregateFinding records a hash or group aggregate above LargeAggregateRows.
type AggregateFinding struct {
	Type string `json:"type"`
	Rows int64  `json:"rows"`
}

// Findings is everything one evaluation learned about a plan.
type Findings struct {
	LimitPresent      bool                `json:"limit_present"`
	RootRows          int64               `json:"root_rows"`
	MaxNodeBytes      int64               `json:"max_node_bytes"`
	MaxNodeRows       int64               `json:"max_node_rows"`
	SeqScansHeavy     []SeqScanFinding    `json:"seq_scans_heavy"`
	SortNodes         []SortFinding       `json:"sort_nodes"`
	NestedLoopHeavy   []NestedLoopFinding `json:"nested_loop_heavy"`
	LargeAggregates   []AggregateFinding  `json:"large_aggregates"`
	PossibleCrossJoin bool                `json:"possible_cross_join"`
	Reasons           []string            `json:"reasons"`
	Notices           []string            `json:"notices"`
}

func newFindings() *Findings {
	return &Findings{
		SeqScansHeavy:   []SeqScanFinding{},
		SortNodes:       []SortFinding{},
		NestedLoopHeavy: []NestedLoopFinding{},
		LargeAggregates: []AggregateFinding{},
		Reasons:         []string{},
		Notices:         []string{},
	}
}

// HasLimit reports whether a row-limiting operator appears anywhere in the
// tree. The search stops at the first match.
func HasLimit(root *plan.Node) bool {
	return root.Find(func(n *plan.Node) bool { return n.NodeType == plan.TypeLimit }) != nil
}

// Analyze walks every node of the plan and accumulates findings. It does not
// apply the policy; see Decide.
func Analyze(root *plan.Node, t Thresholds) *Findings {
	f := newFindings()
	if root == nil {
		return f
	}

	f.LimitPresent = HasLimit(root)
	f.RootRows = root.EstimatedRows

	root.Walk(func(n *plan.Node) bool {
		inspect(n, t, f)
		return true
	})
	return f
}

func inspect(n *plan.Node, t Thresholds, f *Findings) {
	rows := n.EstimatedRows
	f.MaxNodeBytes = max(f.MaxNodeBytes, n.EstimatedBytes())
	f.MaxNodeRows = max(f.MaxNodeRows, rows)

	switch n.NodeType {
	case plan.TypeSeqScan:
		if rows > t.MaxSeqScanRows {
			f.SeqScansHeavy = append(f.SeqScansHeavy, SeqScanFinding{
				Relation: n.RelationName,
				Rows:     rows,
				Filter:   n.Filter,
			})
		}
	case plan.TypeSort:
		if rows > t.MaxSortRowsNoLimit {
			f.SortNodes = append(f.SortNodes, SortFinding{Rows: rows})
		}
	case plan.TypeNestedLoop:
		left, right := n.ChildRows(0), n.ChildRows(1)
		if left > t.MaxNestedLoopSides && right > t.MaxNestedLoopSides {
			f.NestedLoopHeavy = append(f.NestedLoopHeavy, NestedLoopFinding{Left: left, Right: right})
		}
		if !n.HasJoinCondition() && n.JoinFilter == "" {
			f.PossibleCrossJoin = true
		}
	case plan.TypeHashAggregate, plan.TypeGroupAggregate:
		if rows > LargeAggregateRows {
			f.LargeAggregates = append(f.LargeAggregates, AggregateFinding{Type: n.NodeType, Rows: rows})
		}
	}
}
