package main

import (
	"github.com/aretw0/cueline/internal/cli"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [show]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Runs a show and exposes its transport and cue controls as MCP tools, so an AI agent
can drive rehearsals.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := serveOptions(cmd, args)
		opts.Transport, _ = cmd.Flags().GetString("transport")
		opts.SSEAddr, _ = cmd.Flags().GetString("addr")
		opts.RunID, _ = cmd.Flags().GetString("run")
		// The MCP command never serves the HTTP API.
		opts.Overrides["http.addr"] = ""
		return cli.RunMCP(opts)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	addEngineFlags(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().String("addr", ":8081", "Listen address for the sse transport")
	mcpCmd.Flags().String("run", "", "Run id used to record status")
}
