package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hivetrader/sessionbot/internal/storage"
	"github.com/hivetrader/sessionbot/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print recent sessions, fills and total realized P&L",
	Long: `Reads the session store directly and prints the most recent
sessions, the most recent fills and the total realized P&L.

Requires STORAGE_MODE=postgres; the in-memory store only lives inside a
running bot process.`,
	RunE: runReport,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().IntP("limit", "n", 20, "Number of rows per table")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.StorageMode != "postgres" {
		return fmt.Errorf("report needs STORAGE_MODE=postgres, got %q", cfg.StorageMode)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.NewPostgresStore(&storage.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions, err := store.ListSessions(ctx, limit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	fills, err := store.ListFills(ctx, limit)
	if err != nil {
		return fmt.Errorf("list fills: %w", err)
	}

	total, err := store.TotalPnL(ctx)
	if err != nil {
		return fmt.Errorf("total pnl: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "SESSIONS")
	fmt.Fprintln(w, "ID\tMARKET\tSTART\tEND\tYES\tNO\tPNL")
	for _, s := range sessions {
		end := "open"
		if s.EndedAt != nil {
			end = s.EndedAt.UTC().Format(time.RFC3339)
		}
		pnl := "-"
		if s.PnL != nil {
			pnl = fmt.Sprintf("%.2f", *s.PnL)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			s.ID, s.ConditionID, s.StartedAt.UTC().Format(time.RFC3339),
			end, s.FilledYes, s.FilledNo, pnl)
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "FILLS")
	fmt.Fprintln(w, "TIME\tSIDE\tPRICE\tSHARES\tSESSION")
	for _, f := range fills {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%s\n",
			f.Timestamp.UTC().Format(time.RFC3339), f.Side, f.Price, f.Shares, f.SessionID)
	}

	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "TOTAL REALIZED PNL\t%.2f\n", total)

	return w.Flush()
}
