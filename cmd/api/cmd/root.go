package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "eventparser",
	Short: "Event registration API with poster extraction",
	Long: `eventparser serves the event registration API: accounts, events,
capacity-bounded registrations and admin import of event details from
poster images via OCR and a generative model.

Configuration is read from the environment (and .env when present).`,
	SilenceUsage: true,
	// serve is the default command
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedAdminCmd)
}
