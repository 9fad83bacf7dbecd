package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage checkpointed sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known sessions",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.ListSessions(optionsFromFlags(cmd)); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session checkpoint",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.DeleteSession(optionsFromFlags(cmd), args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
