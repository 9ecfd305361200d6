package pipeline

import (
	"context"
	"fmt"

	"github.com/Yotam17/nl2sql/internal/agent"
	"github.com/Yotam17/nl2sql/internal/config"
	"github.com/Yotam17/nl2sql/internal/guardrail"
	"github.com/Yotam17/nl2sql/internal/service"
	"github.com/Yotam17/nl2sql/internal/sink"
)

// FromConfig wires the production collaborators around db.
func FromConfig(ctx context.Context, cfg *config.Config, db *service.PostgresService) (*Pipeline, error) {
	gen, err := agent.NewGenerator(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("text generator: %w", err)
	}
	return New(ctx, Deps{
		Generator: gen,
		Connect:   PostgresConnector(db),
		Engine:    guardrail.NewEngine(cfg.Thresholds()),
		Sink:      sink.NewCSVSink(cfg.DownloadDir),
		Schema:    agent.NewSchemaLoader(cfg.SchemaFile, db.ListColumns),
	})
}
