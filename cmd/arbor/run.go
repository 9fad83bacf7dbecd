package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Generate an application from a prompt",
	Long: `Starts a new generation run. The pipeline pauses at each review gate;
confirm to advance or give feedback to request a revision.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := optionsFromFlags(cmd)
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.OutDir, _ = cmd.Flags().GetString("out")
		opts.Auto, _ = cmd.Flags().GetBool("auto")

		prompt := strings.Join(args, " ")
		if err := cli.RunSession(opts, prompt); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func optionsFromFlags(cmd *cobra.Command) cli.RunOptions {
	configPath, _ := cmd.Flags().GetString("config")
	template, _ := cmd.Flags().GetString("template")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.RunOptions{
		ConfigPath: configPath,
		Template:   template,
		Debug:      debug,
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("session", "", "Session ID to use (generated when omitted)")
	runCmd.Flags().StringP("out", "o", "", "Directory to export the generated application to")
	runCmd.Flags().Bool("auto", false, "Confirm every review gate automatically")
}
