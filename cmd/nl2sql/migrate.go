package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yotam17/nl2sql/internal/migrate"
)

func newMigrateCommand() *cobra.Command {
	var (
		version int64
		timeout time.Duration
		status  bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create and seed the demo schema",
		Long:  `The migrate command applies the embedded customers/orders/items migrations to DATABASE_URL.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mcfg := migrate.Config{
				URI:           cfg.DatabaseURL,
				Timeout:       timeout,
				TargetVersion: version,
			}
			if status {
				current, err := migrate.Version(cmd.Context(), mcfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", current)
				return nil
			}
			return migrate.Run(cmd.Context(), mcfg)
		},
	}

	cmd.Flags().Int64Var(&version, "version", 0, "the version to migrate to (if omitted the latest schema will be used)")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "how long to wait for the database to accept connections")
	cmd.Flags().BoolVar(&status, "status", false, "print the current schema version and exit")
	return cmd
}
