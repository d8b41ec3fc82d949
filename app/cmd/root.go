package cmd

import (
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "guidepost",
	Short: "AI implementation assistant bridging Slack, the task tracker and an AI expert",
	Long: `Guidepost answers implementation questions, enriches tracker tasks with
generated descriptions, and reports phase-by-phase progress. Run without a
subcommand to start the Slack bot and operator console.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with credentials (environment wins)")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(serveCmd)
}
