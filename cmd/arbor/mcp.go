package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	mcpAdapter "github.com/aretw0/arbor/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts Arbor as an MCP Server over stdio.
This allows AI agents to create applications, confirm review gates and apply
feedback as tool calls.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := optionsFromFlags(cmd)

		cfg, err := cli.LoadConfig(opts.ConfigPath)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		if opts.Template != "" {
			cfg.Template = opts.Template
		}

		app, err := cli.BuildApp(cfg, opts.Debug)
		if err != nil {
			log.Fatalf("Error initializing arbor: %v", err)
		}

		srv := mcpAdapter.NewServer(app.Sessions(), arbor.Version)

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		slog.Info("Starting Arbor MCP Server (Stdio)...")
		if err := srv.ServeStdio(); err != nil {
			slog.Error("MCP Server execution failed", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
