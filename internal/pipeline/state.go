package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Yotam17/nl2sql/internal/guardrail"
	"github.com/Yotam17/nl2sql/internal/models"
	"github.com/Yotam17/nl2sql/internal/service"
)

// ErrStageRepeated is returned when a stage is entered twice in one run.
var ErrStageRepeated = errors.New("stage already ran in this invocation")

// Stage names a node of the pipeline graph.
type Stage string

const (
	StageDetectIntent    Stage = "detect_intent"
	StageGenerateSQL     Stage = "generate_sql"
	StageApplyGuardrails Stage = "apply_guardrails"
	StageExecuteSQL      Stage = "execute_sql"
	StageGenerateVizSpec Stage = "generate_viz_spec"
	StageDecideAction    Stage = "decide_action"
	StageDownload        Stage = "download_node"
	StageDisplay         Stage = "display_node"

	// End is the exit of the graph; it is not a stage.
	End Stage = "end"
)

// Stages lists every stage in declaration order.
var Stages = []Stage{
	StageDetectIntent,
	StageGenerateSQL,
	StageApplyGuardrails,
	StageExecuteSQL,
	StageGenerateVizSpec,
	StageDecideAction,
	StageDownload,
	StageDisplay,
}

// State is owned by a single invocation and threaded through every stage.
// Notices only grow. Reasons is non-empty exactly when GuardrailOK is false.
type State struct {
	Query       string
	Intent      service.Intent
	SQL         string
	Rows        []models.Row
	VizSpec     map[string]any
	Action      service.Action
	FilePath    string
	Notices     []string
	Reasons     []string
	GuardrailOK bool
	Findings    *guardrail.Findings

	// Trace records the stages that ran, in order.
	Trace []Stage
}

// NewState returns the initial state for query.
func NewState(query string) *State {
	return &State{
		Query:       query,
		Notices:     []string{},
		Reasons:     []string{},
		GuardrailOK: true,
	}
}

// Blocked reports whether the guardrail rejected the statement.
func (s *State) Blocked() bool {
	return !s.GuardrailOK
}

func (s *State) notice(msg ...string) {
	s.Notices = append(s.Notices, msg...)
}

func (s *State) enter(stage Stage) error {
	if slices.Contains(s.Trace, stage) {
		return fmt.Errorf("%s: %w", stage, ErrStageRepeated)
	}
	s.Trace = append(s.Trace, stage)
	return nil
}
