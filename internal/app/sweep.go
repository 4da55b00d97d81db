package app

import (
	"context"
	"fmt"
	"os"

	"dustsweep/internal/dust"
)

// Sweep scans a wallet and executes all selected dust in one run.
func (a *App) Sweep(ctx context.Context, opts ChainOptions) error {
	svc, closer, err := a.newService(ctx, opts, true)
	if err != nil {
		return err
	}
	defer closer()

	snap, err := svc.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %s", dust.FriendlyMessage(err))
	}
	if snap.DustDetected == 0 {
		fmt.Fprintln(os.Stdout, "no dust found")
		return nil
	}

	// Balance-model items start deselected; a full sweep opts everything
	// in. Protected items stay untouched either way.
	svc.Store().SelectAll()

	res, err := svc.Reclaim(ctx)
	if err != nil {
		return err
	}

	a.printResult(svc.Selection().ActionKind(), res)

	if !res.Success && res.Err != nil {
		return fmt.Errorf("sweep failed: %s", dust.FriendlyMessage(res.Err))
	}
	return nil
}

func (a *App) printResult(action dust.ActionKind, res dust.Result) {
	if action == dust.ActionBurnTransfer {
		fmt.Fprintf(os.Stdout, "swept %d tokens, %d failed\n", res.Closed, res.Failed)
	} else {
		fmt.Fprintf(os.Stdout, "closed %d accounts, reclaimed %s SOL\n", res.Closed, res.Reclaimed.String())
	}
	for _, id := range res.TxIDs {
		fmt.Fprintf(os.Stdout, "  tx: %s\n", id)
	}
	if res.Err != nil {
		fmt.Fprintf(os.Stdout, "stopped early: %s\n", sanitizeInline(dust.FriendlyMessage(res.Err)))
	}
}
