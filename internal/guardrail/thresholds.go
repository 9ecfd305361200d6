// Package guardrail decides whether a read-only statement is cheap enough to
// run by inspecting the database's plan estimate before execution.
package guardrail

// LargeAggregateRows is the row estimate above which a hash or group
// aggregate is considered too large.
const LargeAggregateRows = 50_000

// Thresholds configure the accept/reject policy. Values are copied into the
// engine at construction and never change afterwards.
type Thresholds struct {
	RequireLimit       bool  `json:"require_limit"`
	MaxRootRows        int64 `json:"max_root_rows"`
	MaxNodeBytes       int64 `json:"max_node_bytes"`
	MaxSeqScanRows     int64 `json:"max_seqscan_rows"`
	MaxSortRowsNoLimit int64 `json:"max_sort_rows_no_limit"`
	MaxNestedLoopSides int64 `json:"max_nested_loop_sides"`
	DefaultLimit       int   `json:"default_limit"`
}

// DefaultThresholds returns the stock policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RequireLimit:       true,
		MaxRootRows:        10_000,
		MaxNodeBytes:       50_000_000, // ~50MB estimated
		MaxSeqScanRows:     10_000,
		MaxSortRowsNoLimit: 10_000,
		MaxNestedLoopSides: 5_000,
		DefaultLimit:       10,
	}
}
