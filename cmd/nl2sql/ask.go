package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Yotam17/nl2sql/internal/handler"
	"github.com/Yotam17/nl2sql/internal/pipeline"
	"github.com/Yotam17/nl2sql/internal/service"
)

func newAskCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   `ask "<question>"`,
		Short: "Answer one question and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question is required")
			}

			db, err := service.NewPostgresService(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			p, err := pipeline.FromConfig(cmd.Context(), cfg, db)
			if err != nil {
				return err
			}

			state, err := p.Run(cmd.Context(), question)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(handler.Response(state))
			}
			fmt.Fprint(os.Stdout, render(state))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the JSON body the HTTP API would return")
	return cmd
}
