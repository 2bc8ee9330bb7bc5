package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/longtext-mcp/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.logger.Info("Longtext MCP server starting", zap.String("version", version))

			server, err := mcp.NewServer(a.cfg, a.logger)
			if err != nil {
				return err
			}

			// Set up graceful shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.Info("MCP server ready, listening on stdio")
			if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("Server error", zap.Error(err))
				return err
			}

			a.logger.Info("Server stopped")
			return nil
		},
	}
}
