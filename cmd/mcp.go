package cmd

import (
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/config"
	"github.com/joescharf/revu/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio so assistants
can request reviews. Configure in your MCP client with:

  {
    "mcpServers": {
      "revu": { "command": "revu", "args": ["mcp"] }
    }
  }

Available tools: revu_review_pr, revu_review_files`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), shutdownSignals()...)
		defer stop()

		svc, closeFn, err := newService(ctx, config.ModeServe)
		if err != nil {
			return err
		}
		defer closeFn()

		return mcp.NewServer(svc, buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
