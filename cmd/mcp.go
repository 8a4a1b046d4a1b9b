package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/tribunal/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets agents trigger audits and query the run archive natively.
Configure in Claude Code with:

  {
    "mcpServers": {
      "tribunal": { "command": "tribunal", "args": ["mcp"] }
    }
  }

Available tools: tribunal_audit, tribunal_list_runs, tribunal_get_run,
tribunal_rubric`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		r, err := getRubric()
		if err != nil {
			return err
		}
		s, err := getStore()
		if err != nil {
			return err
		}

		srv := mcp.NewServer(eng, s, r)
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
