// Package pipeline turns a natural-language question into a vetted query
// result. Stages run as nodes of an eino graph over a single *State; edges
// come from an explicit routing table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	"github.com/Yotam17/nl2sql/internal/guardrail"
	"github.com/Yotam17/nl2sql/internal/metrics"
	"github.com/Yotam17/nl2sql/internal/models"
	"github.com/Yotam17/nl2sql/internal/plan"
	"github.com/Yotam17/nl2sql/internal/service"
)

// TextGenerator is the text generation service.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Session is one database connection, used by a single stage and closed
// before the stage returns.
type Session interface {
	Explain(ctx context.Context, sql string) (*plan.Node, error)
	Query(ctx context.Context, sql string) (*service.QueryResult, error)
	Close(ctx context.Context) error
}

// Connector opens a new Session.
type Connector func(ctx context.Context) (Session, error)

// PostgresConnector adapts a PostgresService to a Connector.
func PostgresConnector(db *service.PostgresService) Connector {
	return func(ctx context.Context) (Session, error) {
		sess, err := db.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

// FileSink stores rows and returns where they were written.
type FileSink interface {
	Save(rows []models.Row) (string, error)
}

// SchemaSource supplies the schema text for SQL generation.
type SchemaSource interface {
	Schema(ctx context.Context) string
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Generator TextGenerator
	Connect   Connector
	Engine    *guardrail.Engine
	Sink      FileSink
	Schema    SchemaSource
}

type Pipeline struct {
	deps       Deps
	routes     Routes
	classifier *service.KeywordClassifier
	runnable   compose.Runnable[*State, *State]
}

// New validates the routing table and compiles the stage graph.
func New(ctx context.Context, deps Deps) (*Pipeline, error) {
	return NewWithRoutes(ctx, deps, DefaultRoutes())
}

func NewWithRoutes(ctx context.Context, deps Deps, routes Routes) (*Pipeline, error) {
	switch {
	case deps.Generator == nil:
		return nil, errors.New("pipeline: text generator is nil")
	case deps.Connect == nil:
		return nil, errors.New("pipeline: connector is nil")
	case deps.Engine == nil:
		return nil, errors.New("pipeline: guardrail engine is nil")
	case deps.Sink == nil:
		return nil, errors.New("pipeline: file sink is nil")
	case deps.Schema == nil:
		return nil, errors.New("pipeline: schema source is nil")
	}
	if err := routes.Validate(StageDetectIntent); err != nil {
		return nil, fmt.Errorf("pipeline: invalid routing table: %w", err)
	}

	p := &Pipeline{
		deps:       deps,
		routes:     routes,
		classifier: service.NewKeywordClassifier(),
	}
	runnable, err := p.build(ctx)
	if err != nil {
		return nil, err
	}
	p.runnable = runnable
	return p, nil
}

// Run executes one invocation over a fresh State. Collaborator failures never
// surface here; an error means the graph itself could not complete.
func (p *Pipeline) Run(ctx context.Context, query string) (*State, error) {
	start := time.Now()
	s, err := p.runnable.Invoke(ctx, NewState(query))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	outcome := "ok"
	if s.Blocked() {
		outcome = "blocked"
	}
	metrics.PipelineRuns.WithLabelValues(string(s.Intent), string(s.Action), outcome).Inc()
	log.Info().
		Str("intent", string(s.Intent)).
		Str("action", string(s.Action)).
		Bool("blocked", s.Blocked()).
		Int("rows", len(s.Rows)).
		Int("notices", len(s.Notices)).
		Dur("duration", time.Since(start)).
		Msg("pipeline completed")
	return s, nil
}

type stageFunc func(ctx context.Context, s *State) (*State, error)

func (p *Pipeline) stages() map[Stage]stageFunc {
	return map[Stage]stageFunc{
		StageDetectIntent:    p.detectIntent,
		StageGenerateSQL:     p.generateSQL,
		StageApplyGuardrails: p.applyGuardrails,
		StageExecuteSQL:      p.executeSQL,
		StageGenerateVizSpec: p.generateVizSpec,
		StageDecideAction:    p.decideAction,
		StageDownload:        p.download,
		StageDisplay:         p.display,
	}
}

func nodeKey(s Stage) string {
	if s == End {
		return compose.END
	}
	return string(s)
}

func (p *Pipeline) build(ctx context.Context) (compose.Runnable[*State, *State], error) {
	g := compose.NewGraph[*State, *State]()

	for stage, fn := range p.stages() {
		if err := g.AddLambdaNode(string(stage), compose.InvokableLambda(traced(stage, fn))); err != nil {
			return nil, fmt.Errorf("add stage %s: %w", stage, err)
		}
	}
	if err := g.AddEdge(compose.START, string(StageDetectIntent)); err != nil {
		return nil, err
	}

	for _, from := range Stages {
		route := p.routes[from]
		if !route.conditional() {
			if err := g.AddEdge(string(from), nodeKey(route.Next)); err != nil {
				return nil, fmt.Errorf("edge %s -> %s: %w", from, route.Next, err)
			}
			continue
		}

		ends := map[string]bool{}
		for _, t := range route.Targets() {
			ends[nodeKey(t)] = true
		}
		cond := func(_ context.Context, s *State) (string, error) {
			next, err := p.routes.Next(from, s)
			if err != nil {
				return "", err
			}
			return nodeKey(next), nil
		}
		if err := g.AddBranch(string(from), compose.NewGraphBranch(cond, ends)); err != nil {
			return nil, fmt.Errorf("branch from %s: %w", from, err)
		}
	}

	return g.Compile(ctx, compose.WithMaxRunSteps(len(Stages)+2))
}

// traced records the stage in the trace, refuses re-entry and times it.
func traced(stage Stage, fn stageFunc) func(context.Context, *State) (*State, error) {
	return func(ctx context.Context, s *State) (*State, error) {
		if err := s.enter(stage); err != nil {
			return nil, err
		}
		start := time.Now()
		out, err := fn(ctx, s)
		metrics.StageDuration.WithLabelValues(string(stage)).Observe(float64(time.Since(start).Milliseconds()))
		return out, err
	}
}
