package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"dustsweep/internal/history"
)

// Export renders the run history as CSV and/or a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	ledger, closeLedger, err := a.openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeLedger()

	hist, err := ledger.Load(ctx)
	if err != nil {
		return err
	}
	if len(hist.Entries) == 0 {
		a.Logger.Info().Msg("no runs recorded, nothing to export")
		return nil
	}

	// Entries are stored most-recent-first; exports want chronological.
	entries := make([]history.Entry, len(hist.Entries))
	for i, entry := range hist.Entries {
		entries[len(hist.Entries)-1-i] = entry
	}
	entries = downsampleEntries(entries, opts.MaxPoints)

	a.Logger.Info().Int("total", len(hist.Entries)).Int("exported", len(entries)).Msg("exporting run history")

	if opts.CSVPath != "" {
		if err := writeEntriesCSV(opts.CSVPath, entries); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeEntriesPNG(opts.PNGPath, entries); err != nil {
			return err
		}
	}

	return nil
}

func downsampleEntries(entries []history.Entry, max int) []history.Entry {
	if max <= 0 || len(entries) <= max {
		return entries
	}

	result := make([]history.Entry, 0, max)
	step := float64(len(entries)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(entries) {
			idx = len(entries) - 1
		}
		result = append(result, entries[idx])
	}
	return result
}

func writeEntriesCSV(path string, entries []history.Entry) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"timestamp", "chain", "wallet", "accounts_closed", "amount_reclaimed", "signature", "status", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, entry := range entries {
		record := []string{
			entry.Timestamp.Format(time.RFC3339),
			entry.Chain,
			entry.WalletAddress,
			strconv.Itoa(entry.AccountsClosed),
			entry.AmountReclaimed.String(),
			entry.SignatureOrHash,
			string(entry.Status),
			entry.Error,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeEntriesPNG(path string, entries []history.Entry) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(entries))
	perRun := make([]float64, len(entries))
	cumulative := make([]float64, len(entries))
	closed := make([]float64, len(entries))

	running := decimal.Zero
	for i, entry := range entries {
		x[i] = entry.Timestamp
		perRun[i] = entry.AmountReclaimed.InexactFloat64()
		running = running.Add(entry.AmountReclaimed)
		cumulative[i] = running.InexactFloat64()
		closed[i] = float64(entry.AccountsClosed)
	}

	amountFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.5f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Reclaimed",
			ValueFormatter: amountFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Accounts closed",
			ValueFormatter: chart.IntValueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Per run",
				XValues: x,
				YValues: perRun,
			},
			chart.TimeSeries{
				Name:    "Cumulative",
				XValues: x,
				YValues: cumulative,
			},
			chart.TimeSeries{
				Name:    "Closed",
				XValues: x,
				YValues: closed,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
