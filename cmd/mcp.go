package cmd

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/inov8tr/ecolab/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an assistant drive the binder test lifecycle directly. Configure it
in an MCP client with:

  {
    "mcpServers": {
      "ecolab": { "command": "ecolab", "args": ["mcp"] }
    }
  }

Mutating tools accept user_id and role arguments; otherwise the configured
actor (--user/--role, actor.user_id/actor.role) is recorded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getService(nil)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
		defer stop()
		return mcp.NewServer(svc, currentActor(), buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
