package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrEmptyPlan is returned when the planner output holds no plan.
var ErrEmptyPlan = errors.New("explain output contains no plan")

// rawNode mirrors one node of Postgres' EXPLAIN (FORMAT JSON) output.
// Row and width estimates are decoded as floats because some planners
// emit fractional estimates.
type rawNode struct {
	NodeType     string    `json:"Node Type"`
	Strategy     string    `json:"Strategy,omitempty"`
	PlanRows     float64   `json:"Plan Rows"`
	PlanWidth    float64   `json:"Plan Width"`
	RelationName string    `json:"Relation Name,omitempty"`
	Filter       string    `json:"Filter,omitempty"`
	HashCond     string    `json:"Hash Cond,omitempty"`
	MergeCond    string    `json:"Merge Cond,omitempty"`
	JoinFilter   string    `json:"Join Filter,omitempty"`
	Plans        []rawNode `json:"Plans,omitempty"`
}

type rawExplain struct {
	Plan *rawNode `json:"Plan"`
}

// ParseExplainJSON decodes the output of EXPLAIN (FORMAT JSON). Postgres wraps
// the document in a one-element array; a bare object is accepted as well.
func ParseExplainJSON(data []byte) (*Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPlan
	}

	var doc rawExplain
	if data[0] == '[' {
		var docs []rawExplain
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("decode explain output: %w", err)
		}
		if len(docs) == 0 {
			return nil, ErrEmptyPlan
		}
		doc = docs[0]
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode explain output: %w", err)
	}

	if doc.Plan == nil {
		return nil, ErrEmptyPlan
	}
	return convert(doc.Plan), nil
}

func convert(r *rawNode) *Node {
	n := &Node{
		NodeType:       normalizeType(r.NodeType, r.Strategy),
		EstimatedRows:  nonNegative(r.PlanRows),
		EstimatedWidth: nonNegative(r.PlanWidth),
		RelationName:   r.RelationName,
		Filter:         r.Filter,
		HashCond:       r.HashCond,
		MergeCond:      r.MergeCond,
		JoinFilter:     r.JoinFilter,
	}
	if len(r.Plans) > 0 {
		n.Children = make([]*Node, len(r.Plans))
		for i := range r.Plans {
			n.Children[i] = convert(&r.Plans[i])
		}
	}
	return n
}

// normalizeType maps the JSON form "Aggregate" + Strategy onto the operator
// names the text format prints.
func normalizeType(nodeType, strategy string) string {
	if nodeType != TypeAggregate {
		return nodeType
	}
	switch strategy {
	case "Hashed":
		return TypeHashAggregate
	case "Sorted":
		return TypeGroupAggregate
	case "Mixed":
		return TypeMixedAggregate
	default:
		return TypeAggregate
	}
}

// nonNegative converts a planner estimate, saturating at math.MaxInt64.
func nonNegative(v float64) int64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(v)
}
