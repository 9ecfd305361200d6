package models

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// AskResponse is returned by POST /api/v1/ask when the answer is displayed
// rather than downloaded.
type AskResponse struct {
	Intent  string         `json:"intent"`
	SQL     string         `json:"sql"`
	Rows    []Row          `json:"rows"`
	VizSpec map[string]any `json:"viz_spec"`
	Notices []string       `json:"notices"`
	Blocked bool           `json:"blocked,omitempty"`
	Reasons []string       `json:"reasons,omitempty"`
}

// QueryResponse is returned by POST /api/v1/query
type QueryResponse struct {
	Status   string   `json:"status"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}
