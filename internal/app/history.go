package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// History prints lifetime totals and recent reclaim runs.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	ledger, closeLedger, err := a.openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeLedger()

	hist, err := ledger.Load(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "lifetime reclaimed: %s\n", hist.LifetimeReclaimed.String())
	fmt.Fprintf(os.Stdout, "lifetime closed: %d\n", hist.LifetimeClosed)
	if hist.LastRun != nil {
		fmt.Fprintf(os.Stdout, "last run: %s\n", hist.LastRun.UTC().Format(time.RFC3339))
	}

	entries := hist.Entries
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stdout, "no runs recorded")
		return nil
	}

	fmt.Fprintln(os.Stdout)
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tChain\tWallet\tClosed\tReclaimed\tTx\tStatus\tError")

	for _, entry := range entries {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			entry.Timestamp.UTC().Format(time.RFC3339),
			entry.Chain,
			shortAddress(entry.WalletAddress),
			entry.AccountsClosed,
			entry.AmountReclaimed.String(),
			shortAddress(entry.SignatureOrHash),
			entry.Status,
			sanitizeInline(entry.Error),
		)
	}

	return writer.Flush()
}
