package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policycite/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so assistants can cite the
policy corpus while drafting or reviewing a summary.

By default, the server communicates over stdio using JSON-RPC.
Use --port to serve streamable HTTP instead.

Tools: query, lookup, status, import, remove.

Examples:
  # Stdio mode (default)
  policycite mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  policycite mcp serve --port 8080

Desktop assistant configuration:
  {
    "mcpServers": {
      "policycite": {
        "command": "/path/to/policycite",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Search: searchService,
		Import: importService,
		Corpus: corpusService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
