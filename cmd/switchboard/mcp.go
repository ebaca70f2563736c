package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aretw0/switchboard/internal/cli"
	"github.com/aretw0/switchboard/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the agent as an MCP server: the ask_support tool runs a full turn,
and every capability is published as its own tool.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		if transport != "stdio" && transport != "sse" {
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		app, err := buildApp(sc, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Engine, app.Engine.Dispatcher(),
			mcp.WithLogger(app.Logger),
			mcp.WithLimits(inputLimits(app.Config)),
		)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			app.Logger.Info("starting MCP server", "transport", transport, "tools", len(srv.Tools()))
			return srv.ServeStdio()
		default:
			addr := app.Config.Server.MCPAddr
			if cmd.Flags().Changed("addr") {
				addr, _ = cmd.Flags().GetString("addr")
			}
			baseURL, _ := cmd.Flags().GetString("base-url")
			app.Logger.Info("starting MCP server", "transport", transport, "addr", addr, "tools", len(srv.Tools()))
			if err := srv.ServeSSE(sc, addr, baseURL); err != nil {
				return err
			}
			app.Logger.Info("MCP server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8090", "Address to listen on (only for SSE, overrides server.mcp_addr)")
	mcpCmd.Flags().String("base-url", "", "Public base URL advertised to SSE clients")
}
