package cmd

import (
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/cadence/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for AI assistants",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

Every tool call acts as the configured user.id (or --user). Configure
in an MCP client with:

  {
    "mcpServers": {
      "cadence": { "command": "cadence", "args": ["mcp"] }
    }
  }

Available tools: cadence_list_content, cadence_create_content,
cadence_move_content, cadence_content_stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getService()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
		defer stop()

		userID := viper.GetString("user.id")
		logger.Debug("starting mcp server", "user_id", userID)
		return mcp.NewServer(svc, userID).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
