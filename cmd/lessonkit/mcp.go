package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lessonkit/internal/cli"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes explorations as MCP tools so AI agents can inspect, rename and
play them.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := openEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			srv := cli.NewServices(e.backend, e.cfg, e.logger).NewMCPServer(e.logger)

			transport, _ := cmd.Flags().GetString("transport")
			addr, _ := cmd.Flags().GetString("addr")
			switch transport {
			case "stdio":
				// Logs go to stderr so they never corrupt JSON-RPC on stdout.
				e.logger.Info("Starting lessonkit MCP Server (Stdio)")
				return srv.ServeStdio()
			case "sse":
				baseURL, _ := cmd.Flags().GetString("base-url")
				if baseURL == "" {
					baseURL = "http://localhost" + addr
				}
				err := srv.ServeSSE(ctx, addr, baseURL)
				e.logger.Info("MCP Server stopped")
				return err
			}
			return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
		},
	}
	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
	cmd.Flags().String("base-url", "", "Public base URL (only for SSE)")
	return cmd
}
