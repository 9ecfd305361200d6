package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Yotam17/nl2sql/internal/middleware"
	"github.com/Yotam17/nl2sql/internal/models"
	"github.com/Yotam17/nl2sql/internal/security"
	"github.com/Yotam17/nl2sql/internal/service"
)

// Executor runs a single read-only statement.
type Executor interface {
	Execute(ctx context.Context, sql string, timeout time.Duration) (*service.QueryResult, error)
}

// QueryHandler handles direct SQL query execution
type QueryHandler struct {
	db          Executor
	sqlVal      *security.SQLValidator
	auditLogger *security.AuditLogger
}

func NewQueryHandler(db Executor, sqlVal *security.SQLValidator, auditLogger *security.AuditLogger) *QueryHandler {
	return &QueryHandler{
		db:          db,
		sqlVal:      sqlVal,
		auditLogger: auditLogger,
	}
}

// Execute handles POST /api/v1/query
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.SetDefaults()

	if errMsg := h.sqlVal.Validate(req.SQL); errMsg != "" {
		err := fmt.Errorf("%w: %s", security.ErrNotReadOnly, errMsg)
		models.WriteAppError(w, models.NewAppError(err, http.StatusBadRequest, "Invalid SQL"))
		return
	}

	requestID := middleware.GetRequestID(r.Context())
	start := time.Now()

	result, err := h.db.Execute(r.Context(), req.SQL, time.Duration(req.TimeoutMs)*time.Millisecond)
	execMs := time.Since(start).Milliseconds()
	if err != nil {
		h.auditLogger.LogQuery(req.SQL, requestID, r.RemoteAddr, execMs, 0, false, err.Error())
		models.WriteError(w, http.StatusInternalServerError, "DB Error: "+err.Error())
		return
	}

	h.auditLogger.LogQuery(req.SQL, requestID, r.RemoteAddr, execMs, len(result.Values), true, "")

	models.WriteJSON(w, http.StatusOK, models.QueryResponse{
		Status:   "success",
		Columns:  result.Columns,
		Rows:     result.Values,
		RowCount: len(result.Values),
	})
}
