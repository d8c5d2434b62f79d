package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SteelMorgan/hostlog-checker/internal/mcp"
)

func newMCPCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve pagination as MCP tools over stdio",
		Long: `Serve the log classes as Model Context Protocol tools over stdio.
Requests are read from stdin and answered on stdout; logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			proto := mcp.NewMCPProtocol(a.registry, a.paginator(), version, os.Stdin, os.Stdout)
			if err := proto.Start(ctx); err != nil {
				return err
			}
			log.Info().Msg("MCP stdio server stopped")
			return nil
		},
	}
}
