package pipeline_test

import (
	"strings"
	"testing"

	"github.com/Yotam17/nl2sql/internal/pipeline"
	"github.com/Yotam17/nl2sql/internal/service"
)

func TestDefaultRoutesValid(t *testing.T) {
	if err := pipeline.DefaultRoutes().Validate(pipeline.StageDetectIntent); err != nil {
		t.Fatalf("default routing table invalid: %v", err)
	}
}

func TestRoutesNext(t *testing.T) {
	routes := pipeline.DefaultRoutes()

	blocked := pipeline.NewState("q")
	blocked.GuardrailOK = false
	blocked.Reasons = []string{"too big"}

	viz := pipeline.NewState("q")
	viz.Intent = service.IntentViz

	sql := pipeline.NewState("q")
	sql.Intent = service.IntentSQL
	sql.Action = service.ActionDownload

	tests := []struct {
		from  pipeline.Stage
		state *pipeline.State
		want  pipeline.Stage
	}{
		{pipeline.StageDetectIntent, viz, pipeline.StageGenerateSQL},
		{pipeline.StageDetectIntent, sql, pipeline.StageGenerateSQL},
		{pipeline.StageGenerateSQL, sql, pipeline.StageApplyGuardrails},
		{pipeline.StageApplyGuardrails, sql, pipeline.StageExecuteSQL},
		{pipeline.StageApplyGuardrails, blocked, pipeline.StageDisplay},
		{pipeline.StageExecuteSQL, sql, pipeline.StageDecideAction},
		{pipeline.StageExecuteSQL, viz, pipeline.StageGenerateVizSpec},
		{pipeline.StageGenerateVizSpec, viz, pipeline.StageDecideAction},
		{pipeline.StageDecideAction, sql, pipeline.StageDownload},
		{pipeline.StageDownload, sql, pipeline.End},
		{pipeline.StageDisplay, blocked, pipeline.End},
	}
	for _, tt := range tests {
		got, err := routes.Next(tt.from, tt.state)
		if err != nil {
			t.Errorf("Next(%s): %v", tt.from, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Next(%s) = %s, want %s", tt.from, got, tt.want)
		}
	}

	// Action is unset until decide_action runs.
	if _, err := routes.Next(pipeline.StageDecideAction, viz); err == nil {
		t.Error("routing on an unset action should fail")
	}
	if _, err := routes.Next(pipeline.End, sql); err == nil {
		t.Error("end has no outgoing route")
	}
}

func TestBlockedStateNeverReachesExecution(t *testing.T) {
	routes := pipeline.DefaultRoutes()
	s := pipeline.NewState("q")
	s.Intent = service.IntentViz
	s.GuardrailOK = false

	stage := pipeline.StageApplyGuardrails
	for stage != pipeline.End {
		if stage == pipeline.StageExecuteSQL || stage == pipeline.StageGenerateVizSpec {
			t.Fatalf("blocked state routed to %s", stage)
		}
		next, err := routes.Next(stage, s)
		if err != nil {
			t.Fatalf("Next(%s): %v", stage, err)
		}
		stage = next
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(pipeline.Routes)
		want   string
	}{
		{
			name:   "missing route",
			mutate: func(r pipeline.Routes) { delete(r, pipeline.StageGenerateSQL) },
			want:   "has no route",
		},
		{
			name: "uncovered domain value",
			mutate: func(r pipeline.Routes) {
				route := r[pipeline.StageApplyGuardrails]
				route.Cases = map[string]pipeline.Stage{"true": pipeline.StageExecuteSQL}
				r[pipeline.StageApplyGuardrails] = route
			},
			want: `guardrail_ok="false" is not routed`,
		},
		{
			name: "unknown target",
			mutate: func(r pipeline.Routes) {
				r[pipeline.StageGenerateVizSpec] = pipeline.Route{Next: "render_png"}
			},
			want: "unknown stage",
		},
		{
			name: "cycle",
			mutate: func(r pipeline.Routes) {
				r[pipeline.StageDisplay] = pipeline.Route{Next: pipeline.StageDetectIntent}
			},
			want: "cycle",
		},
		{
			name: "unreachable stage",
			mutate: func(r pipeline.Routes) {
				route := r[pipeline.StageExecuteSQL]
				route.Cases = map[string]pipeline.Stage{
					string(service.IntentSQL): pipeline.StageDecideAction,
					string(service.IntentViz): pipeline.StageDecideAction,
				}
				r[pipeline.StageExecuteSQL] = route
			},
			want: "unreachable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pipeline.DefaultRoutes()
			tt.mutate(r)
			err := r.Validate(pipeline.StageDetectIntent)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
