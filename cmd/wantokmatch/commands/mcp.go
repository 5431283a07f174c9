package commands

import (
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hyperjump/wantokmatch/internal/mcp"
)

// NewMCPCmd creates the MCP command.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Exposes job search, matching, compatibility and provider usage as MCP
tools over stdio. Tools run with operator rights. Logs go to stderr.`,
		Example: `  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "wantokmatch": {
  #       "command": "wantokmatch",
  #       "args": ["mcp", "--config", "/etc/wantokmatch/config.yaml"]
  #     }
  #   }
  # }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer cleanup()

			s := mcpserver.NewMCPServer(app, versionInfo.Version, mcpserver.WithToolCapabilities(false))
			mcp.RegisterTools(s, c.engine, c.client, c.logger.Named("mcp"))
			return mcpserver.ServeStdio(s)
		},
	}
}
