package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"dustsweep/internal/dust"
)

// Scan classifies a wallet's holdings and prints the dust report.
func (a *App) Scan(ctx context.Context, opts ChainOptions) error {
	svc, closer, err := a.newService(ctx, opts, false)
	if err != nil {
		return err
	}
	defer closer()

	snap, err := svc.Scan(ctx)
	if err != nil {
		fmt.Fprintln(os.Stdout, "no dust found")
		return fmt.Errorf("scan failed: %s", dust.FriendlyMessage(err))
	}

	quote := a.spotQuote(ctx, svc.Selection())

	fmt.Fprintf(os.Stdout, "wallet: %s (%s)\n", svc.Wallet(), svc.Selection().Chain)
	fmt.Fprintf(os.Stdout, "scanned %d holdings, %d dust\n", snap.TotalScanned, snap.DustDetected)
	fmt.Fprintf(os.Stdout, "recoverable: %s (%s)\n\n", snap.Recoverable.String(), quote.FormatUSD(snap.Recoverable))

	if len(snap.Items) == 0 {
		fmt.Fprintln(os.Stdout, "no dust found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Address\tSymbol\tBalance\tRecoverable\tStatus\tSelected\tAge")

	for _, item := range snap.Items {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortAddress(item.Address),
			item.Symbol,
			item.Balance.String(),
			item.Recoverable.String(),
			item.Status,
			checkbox(item.Selected),
			formatAge(item.CreatedAt),
		)
	}

	return writer.Flush()
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + ".." + addr[len(addr)-4:]
}

func checkbox(selected bool) string {
	if selected {
		return "yes"
	}
	return "no"
}

func formatAge(createdAt *time.Time) string {
	if createdAt == nil {
		return "unknown"
	}
	age := time.Since(*createdAt)
	switch {
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
