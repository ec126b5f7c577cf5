package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/revdash/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This allows Claude Code to query revdash natively for reviews and
feedback analytics. Configure in Claude Code with:

  {
    "mcpServers": {
      "revdash": { "command": "revdash", "args": ["mcp"] }
    }
  }

Available tools: revdash_list_reviews, revdash_get_review, revdash_stats,
revdash_list_repos`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		return mcp.NewServer(s, buildVersion).ServeStdio(ctxOrBackground(cmd.Context()))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
