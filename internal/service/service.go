package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dustsweep/internal/chain"
	"dustsweep/internal/config"
	"dustsweep/internal/dust"
	"dustsweep/internal/history"
)

// Dependencies bundle the chain-facing collaborators for one selection.
// Ages and Submitter may be nil: scanning works without them, reclaiming
// requires Submitter.
type Dependencies struct {
	Holdings  chain.HoldingsProvider
	Ages      dust.ActivityLookup
	Submitter dust.Submitter
	Ledger    history.Ledger
}

// Service orchestrates scanning, classification, execution, and run
// recording for a single wallet on an explicitly selected chain.
type Service struct {
	sel    chain.Selection
	wallet string
	deps   Dependencies
	store  *dust.Store
	logger zerolog.Logger

	policy    dust.Policy
	batchSize int
	retry     dust.RetryPolicy

	rent    *dust.RentClassifier
	balance *dust.BalanceClassifier
}

// New constructs the sweep service.
func New(cfg *config.Config, sel chain.Selection, wallet string, deps Dependencies, logger zerolog.Logger) *Service {
	policy := dust.Policy{
		ProtectionEnabled:      cfg.Policy.ProtectionEnabled,
		ProtectionWindow:       cfg.Policy.ProtectionWindow,
		WrappedNativeThreshold: decimal.NewFromFloat(cfg.Policy.WrappedNativeThreshold),
		USDThreshold:           decimal.NewFromFloat(cfg.Policy.USDThreshold),
	}

	retry := dust.DefaultRetryPolicy()
	if cfg.Sweep.MaxRetries > 0 {
		retry = dust.LinearRetryPolicy(cfg.Sweep.MaxRetries, cfg.Sweep.RetryDelay)
	}

	logger = logger.With().
		Str("component", "service").
		Str("chain", string(sel.Chain)).
		Logger()

	return &Service{
		sel:       sel,
		wallet:    wallet,
		deps:      deps,
		store:     dust.NewStore(),
		logger:    logger,
		policy:    policy,
		batchSize: cfg.Sweep.BatchSize,
		retry:     retry,
		rent:      dust.NewRentClassifier(chain.WSOLMint, chain.RentPerAccount, deps.Ages, logger),
		balance:   dust.NewBalanceClassifier(logger),
	}
}

// Store exposes the scan result store for selection toggling and display.
func (s *Service) Store() *dust.Store {
	return s.store
}

// Selection returns the chain the service was built for.
func (s *Service) Selection() chain.Selection {
	return s.sel
}

// Wallet returns the scanned wallet address.
func (s *Service) Wallet() string {
	return s.wallet
}

// Scan enumerates holdings and installs a fresh classified snapshot,
// replacing any previous result. A provider failure installs an empty
// snapshot and surfaces the error so the caller never acts on stale data.
func (s *Service) Scan(ctx context.Context) (*dust.Snapshot, error) {
	if s.deps.Holdings == nil {
		return nil, fmt.Errorf("holdings provider not configured")
	}

	holdings, err := s.deps.Holdings.ListHoldings(ctx, s.wallet)
	if err != nil {
		s.store.SetResult(dust.EmptySnapshot())
		return s.store.Current(), &dust.ProviderError{Op: "list holdings", Err: err}
	}

	pol := s.policy
	pol.Now = time.Now().UTC()

	var items []dust.Item
	switch s.sel.ActionKind() {
	case dust.ActionBurnTransfer:
		items = s.balance.Classify(holdings, pol)
	default:
		items = s.rent.Classify(ctx, holdings, pol)
	}

	s.store.SetResult(&dust.Snapshot{
		TotalScanned: len(holdings),
		DustDetected: len(items),
		Items:        items,
	})

	snap := s.store.Current()
	s.logger.Info().
		Int("scanned", snap.TotalScanned).
		Int("dust", snap.DustDetected).
		Str("recoverable", snap.Recoverable.String()).
		Msg("scan complete")
	return snap, nil
}

// Reclaim executes all selected pending items and records the run in the
// ledger. Zero selected items is a no-op that records nothing.
func (s *Service) Reclaim(ctx context.Context) (dust.Result, error) {
	if s.deps.Submitter == nil {
		return dust.Result{}, fmt.Errorf("submitter not configured; operator key required")
	}

	selected := s.store.Current().SelectedPending()
	if len(selected) == 0 {
		s.logger.Info().Msg("nothing selected, skipping reclaim")
		return dust.Result{}, nil
	}

	engine := dust.NewEngine(s.store, s.retry, s.logger)

	var res dust.Result
	switch s.sel.ActionKind() {
	case dust.ActionBurnTransfer:
		res = engine.ExecuteBurn(ctx, selected, s.deps.Submitter)
	default:
		batchSize := s.batchSize
		if limit := dust.BatchSizeFor(dust.ActionClose); limit < batchSize {
			batchSize = limit
		}
		res = engine.ExecuteClose(ctx, dust.Plan(selected, batchSize), s.deps.Submitter)
	}

	s.record(ctx, res)
	return res, nil
}

// record appends the run to the history ledger. Persistence failure is
// logged and swallowed: the on-chain outcome already happened.
func (s *Service) record(ctx context.Context, res dust.Result) {
	if s.deps.Ledger == nil {
		return
	}

	entry := history.Entry{
		Timestamp:       time.Now().UTC(),
		SignatureOrHash: firstTxID(res.TxIDs),
		AccountsClosed:  res.Closed,
		AmountReclaimed: res.Reclaimed,
		WalletAddress:   s.wallet,
		Chain:           string(s.sel.Chain),
		Status:          runStatus(res),
	}
	if res.Err != nil {
		entry.Error = dust.FriendlyMessage(res.Err)
	}

	if _, err := s.deps.Ledger.Append(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Msg("could not persist run history")
	}
}

func runStatus(res dust.Result) history.Status {
	switch {
	case res.Success && res.Failed == 0 && res.Err == nil:
		return history.StatusSuccess
	case res.Success:
		return history.StatusPartial
	default:
		return history.StatusFailed
	}
}

func firstTxID(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return ids[0]
}
