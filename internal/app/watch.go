package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"dustsweep/internal/dust"
	"dustsweep/internal/price"
	"dustsweep/internal/scheduler"
)

// Watch runs the periodic scan-and-sweep loop until interrupted. Every
// interval it rescans, selects all sweepable dust, and reclaims it; a
// failed cycle is logged and the loop keeps going.
func (a *App) Watch(ctx context.Context, opts ChainOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, closer, err := a.newService(ctx, opts, true)
	if err != nil {
		return err
	}
	defer closer()

	var quotes quoter
	if a.Config.Price.Enabled {
		// Keep a rolling USD quote in the background for cycle logs.
		feed := a.newPriceTicker(svc.Selection())
		feed.Start(ctx)
		defer feed.Stop()
		quotes = feed
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Watch.Interval,
		Immediate:    true,
		StartupDelay: a.Config.Watch.StartupDelay,
	}, a.Logger)

	a.Logger.Info().
		Str("wallet", svc.Wallet()).
		Str("chain", string(svc.Selection().Chain)).
		Dur("interval", a.Config.Watch.Interval).
		Msg("starting watch loop")

	err = sched.Run(ctx, func(ctx context.Context, at time.Time) error {
		return a.watchCycle(ctx, svc, quotes, at)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}

func (a *App) watchCycle(ctx context.Context, svc sweeper, quotes quoter, at time.Time) error {
	snap, err := svc.Scan(ctx)
	if err != nil {
		return err
	}
	if snap.DustDetected == 0 {
		a.Logger.Debug().Time("at", at).Msg("no dust this cycle")
		return nil
	}

	svc.Store().SelectAll()

	res, err := svc.Reclaim(ctx)
	if err != nil {
		return err
	}

	var quote price.Quote
	if quotes != nil {
		quote = quotes.Current()
	}

	event := a.Logger.Info()
	if res.Err != nil {
		event = a.Logger.Warn().Str("error", dust.FriendlyMessage(res.Err))
	}
	event.Time("at", at).
		Int("closed", res.Closed).
		Int("failed", res.Failed).
		Str("reclaimed", res.Reclaimed.String()).
		Str("reclaimed_usd", quote.FormatUSD(res.Reclaimed)).
		Msg("sweep cycle complete")
	return nil
}

// sweeper is the slice of the service the watch loop needs; tests swap in
// a fake.
type sweeper interface {
	Scan(ctx context.Context) (*dust.Snapshot, error)
	Reclaim(ctx context.Context) (dust.Result, error)
	Store() *dust.Store
}

// quoter supplies the latest USD quote; nil means no price feed.
type quoter interface {
	Current() price.Quote
}
