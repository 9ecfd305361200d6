package main

import (
	"github.com/spf13/cobra"

	"github.com/Yotam17/nl2sql/internal/server"
)

func newServeCommand() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			srv, err := server.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "address to listen on (overrides HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (overrides PORT)")
	return cmd
}
