package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "sessionbot",
	Short: "Recurring binary-market session bot",
	Long: `Session bot that trades recurring short-lived binary markets
(e.g. the 15-minute BTC up/down market) in fixed-length sessions.

Each session spans one market instance: the bot buys both outcomes when
their prices drop to or below a configured ceiling, and settles the pair
at expiry, where every matched YES/NO pair pays exactly one unit.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; the environment wins either way.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
