package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobaru/internal/observability"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent application attempts",
	Long:  "List the most recent concluded attempts recorded in Postgres. Requires a database URL.",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().String("db-url", "", "Postgres URL of the attempt history")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of attempts to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	_, cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("attempt history needs a database: pass --db-url or set DATABASE_URL")
	}
	st, err := openStores(ctx, cfg, observability.GetLogger())
	if err != nil {
		return err
	}
	defer st.close()

	attempts, err := st.history.RecentAttempts(ctx, historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No attempts recorded yet.") //nolint:errcheck
		return nil
	}
	for _, a := range attempts {
		fmt.Fprintf(out, "%s  %-20s  %s at %s\n  %s\n", //nolint:errcheck
			a.AttemptedAt.Local().Format("2006-01-02 15:04"), a.Outcome, a.Title, a.Company, a.URL)
	}
	return nil
}
