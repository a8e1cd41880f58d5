package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobaru/internal/ledger"
	"github.com/jonathan/jobaru/internal/observability"
	"github.com/jonathan/jobaru/internal/types"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the processed jobs ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every processed job ID",
	Args:  cobra.NoArgs,
	RunE:  runLedgerList,
}

var ledgerContainsCmd = &cobra.Command{
	Use:   "contains <job-url-or-id>",
	Short: "Report whether a job was already processed",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerContains,
}

func init() {
	ledgerCmd.PersistentFlags().String("ledger", "", "Processed jobs file")
	ledgerCmd.PersistentFlags().String("db-url", "", "Postgres URL of the ledger")

	ledgerCmd.AddCommand(ledgerListCmd, ledgerContainsCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func loadLedger(cmd *cobra.Command) (*ledger.Ledger, func(), error) {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	_, cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	l := ledger.New(st.ledger, logger)
	l.Load(ctx)
	return l, st.close, nil
}

func runLedgerList(cmd *cobra.Command, _ []string) error {
	l, closeStores, err := loadLedger(cmd)
	if err != nil {
		return err
	}
	defer closeStores()

	out := cmd.OutOrStdout()
	for _, id := range l.IDs() {
		fmt.Fprintln(out, id) //nolint:errcheck
	}
	fmt.Fprintf(out, "%d processed\n", l.Len()) //nolint:errcheck
	return nil
}

func runLedgerContains(cmd *cobra.Command, args []string) error {
	l, closeStores, err := loadLedger(cmd)
	if err != nil {
		return err
	}
	defer closeStores()

	id := types.ExtractJobID(args[0])
	if l.Contains(id) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: processed\n", id) //nolint:errcheck
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: not processed\n", id) //nolint:errcheck
	}
	return nil
}
