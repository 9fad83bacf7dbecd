package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
)

// resumeCmd represents the resume command
var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Reattach to an existing session",
	Long:  `Loads a checkpointed session and continues the interactive review loop from where it rested.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := optionsFromFlags(cmd)
		opts.SessionID = args[0]
		opts.OutDir, _ = cmd.Flags().GetString("out")
		opts.Auto, _ = cmd.Flags().GetBool("auto")

		if err := cli.ResumeSession(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().StringP("out", "o", "", "Directory to export the generated application to")
	resumeCmd.Flags().Bool("auto", false, "Confirm every review gate automatically")
}
