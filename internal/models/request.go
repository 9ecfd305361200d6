package models

import "strings"

// AskRequest for POST /api/v1/ask (natural-language question)
type AskRequest struct {
	Query string `json:"query"`
}

func (r *AskRequest) SetDefaults() {
	r.Query = strings.TrimSpace(r.Query)
}

// QueryRequest for POST /api/v1/query (direct SQL)
type QueryRequest struct {
	SQL       string `json:"sql"`
	TimeoutMs int    `json:"timeout_ms"`
}

func (r *QueryRequest) SetDefaults() {
	if r.TimeoutMs == 0 {
		r.TimeoutMs = 30000
	}
	if r.TimeoutMs < 1000 {
		r.TimeoutMs = 1000
	}
	if r.TimeoutMs > 300000 {
		r.TimeoutMs = 300000
	}
}
