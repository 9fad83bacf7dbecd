package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor is an LLM-driven application generation engine",
	Long:  `Arbor generates applications stage by stage (data model, handlers, UI) and lets you review and revise each stage before moving on.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "arbor.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().String("template", "", "Project template directory (overrides config)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}
