package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "meet-recorder",
	Short: "Joins Google Meet calls and records them",
	Long: `meet-recorder drives a browser into a Google Meet call, records the
screen with ffmpeg and leaves when the meeting is over.

It can run as:
  - An HTTP service managing many sessions (serve)
  - A one-off recording of a single meeting (record)`,
	SilenceUsage: true,
}

// Execute is the main entry point for the CLI application
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading configuration")
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRecordCmd())
}
