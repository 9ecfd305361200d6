package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Yotam17/nl2sql/internal/config"
	"github.com/Yotam17/nl2sql/internal/core"
	logx "github.com/Yotam17/nl2sql/pkg/logger"
)

// cfg is loaded once by the root command before any subcommand runs.
var cfg *config.Config

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "nl2sql",
		Short: "Answer natural-language questions with guarded SQL",
		Long: `nl2sql turns a question into a single SELECT statement, checks the planner's
estimate against a guardrail policy, runs it read-only and returns the rows
with a chart specification or as a CSV download.

Configuration is read from compiled defaults, the JSON file named by
NL2SQL_CONFIG and NL2SQL_* environment variables, in that order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			logx.Init(logx.LoggerOpts{
				Environment: core.ParseEnvironment(cfg.Environment),
				Level:       cfg.LogLevel,
			})
			return nil
		},
	}

	root.AddCommand(newServeCommand(), newAskCommand(), newMigrateCommand())
	return root
}
