package cmd

import (
	"fmt"

	"github.com/hivetrader/sessionbot/internal/app"
	"github.com/hivetrader/sessionbot/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the session bot",
	Long: `Starts the session bot, which will:
1. Resolve the currently running market instance from the catalog API
2. Open one trading session per instance
3. Buy each outcome when its price reaches the configured ceiling
4. Settle the session at expiry and open the next one

Trading starts stopped; flip it on with POST /start or --start.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("start", false, "Start trading immediately instead of waiting for POST /start")
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	autoStart, _ := cmd.Flags().GetBool("start")

	application, err := app.New(cfg, logger, &app.Options{
		AutoStart: autoStart,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
