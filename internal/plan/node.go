// Package plan models a database execution-plan estimate as a tree of operators.
package plan

import "math"

// Operator names as reported by the Postgres planner.
const (
	TypeLimit          = "Limit"
	TypeSeqScan        = "Seq Scan"
	TypeSort           = "Sort"
	TypeNestedLoop     = "Nested Loop"
	TypeAggregate      = "Aggregate"
	TypeHashAggregate  = "HashAggregate"
	TypeGroupAggregate = "GroupAggregate"
	TypeMixedAggregate = "MixedAggregate"
)

// Node is one operator of an execution plan. A node owns its children; the
// tree is built once by the decoder and is only read afterwards.
type Node struct {
	NodeType       string
	EstimatedRows  int64 // never negative
	EstimatedWidth int64 // bytes per row, never negative
	RelationName   string
	Filter         string
	HashCond       string
	MergeCond      string
	JoinFilter     string
	Children       []*Node
}

// EstimatedBytes is rows × width for this node alone, saturating at
// math.MaxInt64.
func (n *Node) EstimatedBytes() int64 {
	if n.EstimatedWidth != 0 && n.EstimatedRows > math.MaxInt64/n.EstimatedWidth {
		return math.MaxInt64
	}
	return n.EstimatedRows * n.EstimatedWidth
}

// HasJoinCondition reports whether the node carries a hash or merge condition.
func (n *Node) HasJoinCondition() bool {
	return n.HashCond != "" || n.MergeCond != ""
}

// ChildRows returns the estimated rows of the i-th child, or 0 when absent.
func (n *Node) ChildRows(i int) int64 {
	if i < 0 || i >= len(n.Children) {
		return 0
	}
	return n.Children[i].EstimatedRows
}

// Walk visits n and every descendant depth-first, parent before children.
// Returning false from fn stops the walk; Walk reports whether it ran to completion.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first node in depth-first order for which match is true.
func (n *Node) Find(match func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	total := 0
	n.Walk(func(*Node) bool {
		total++
		return true
	})
	return total
}
