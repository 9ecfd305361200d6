package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Yotam17/nl2sql/internal/middleware"
	"github.com/Yotam17/nl2sql/internal/models"
	"github.com/Yotam17/nl2sql/internal/pipeline"
	"github.com/Yotam17/nl2sql/internal/security"
	"github.com/Yotam17/nl2sql/internal/service"
)

// Asker runs one natural-language question through the pipeline.
type Asker interface {
	Run(ctx context.Context, query string) (*pipeline.State, error)
}

// AskHandler handles POST /api/v1/ask
type AskHandler struct {
	pipeline    Asker
	auditLogger *security.AuditLogger
}

func NewAskHandler(p Asker, auditLogger *security.AuditLogger) *AskHandler {
	return &AskHandler{pipeline: p, auditLogger: auditLogger}
}

// Ask answers with the CSV file when the question asked for a download and
// with the JSON result otherwise.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.SetDefaults()

	if req.Query == "" {
		models.WriteError(w, http.StatusBadRequest, "query is required")
		return
	}

	start := time.Now()
	state, err := h.pipeline.Run(r.Context(), req.Query)
	if err != nil {
		models.WriteAppError(w, err)
		return
	}
	h.auditLogger.LogAsk(req.Query, middleware.GetRequestID(r.Context()), state.SQL,
		state.Blocked(), state.Reasons, time.Since(start).Milliseconds())

	if state.Action == service.ActionDownload && state.FilePath != "" {
		if serveFile(w, r, state.FilePath) {
			return
		}
	}

	models.WriteJSON(w, http.StatusOK, Response(state))
}

// Response converts a finished run to the JSON body.
func Response(s *pipeline.State) models.AskResponse {
	rows := s.Rows
	if rows == nil {
		rows = []models.Row{}
	}
	resp := models.AskResponse{
		Intent:  string(s.Intent),
		SQL:     s.SQL,
		Rows:    rows,
		VizSpec: s.VizSpec,
		Notices: s.Notices,
	}
	if s.Blocked() {
		resp.Blocked = true
		resp.Reasons = s.Reasons
	}
	return resp
}

func serveFile(w http.ResponseWriter, r *http.Request, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("download file unavailable, answering with JSON")
		return false
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("download file unavailable, answering with JSON")
		return false
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeContent(w, r, filepath.Base(path), stat.ModTime(), f)
	return true
}
