package dust

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Submitter turns a batch of items into one signed, broadcast, and
// confirmed transaction. Both calls may fail; the engine's retry policy
// wraps them.
type Submitter interface {
	SignAndSend(ctx context.Context, batch []Item) (string, error)
	Confirm(ctx context.Context, txID string) error
}

// Result summarises one execution run.
type Result struct {
	// Success is true when at least one unit fully completed, so a partial
	// run still reports something actionable.
	Success bool
	// Closed counts closed accounts (rent model) or swept tokens including
	// no-op sweeps (balance model).
	Closed int
	// Failed counts items left in error after the run.
	Failed    int
	Reclaimed decimal.Decimal
	TxIDs     []string
	// Err is the terminal error when the run stopped early, nil otherwise.
	Err error
}

// Engine drives batches through construction, submission, and confirmation,
// mutating the store as each batch settles.
type Engine struct {
	store  *Store
	policy RetryPolicy
	logger zerolog.Logger
}

// NewEngine 构造执行引擎。
func NewEngine(store *Store, policy RetryPolicy, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		policy: policy,
		logger: logger.With().Str("component", "engine").Logger(),
	}
}

// ExecuteClose runs close-model batches strictly in sequence: a later batch
// is never attempted until the current one has succeeded or exhausted its
// retries. Exhaustion stops the run and returns whatever closed so far.
func (e *Engine) ExecuteClose(ctx context.Context, batches [][]Item, sub Submitter) Result {
	res := Result{Reclaimed: decimal.Zero}

	for i, batch := range batches {
		addresses := itemAddresses(batch)
		e.store.MarkProcessing(addresses)

		txID, err := e.submitWithRetry(ctx, batch, sub)
		if err != nil {
			e.store.MarkError(addresses)
			res.Failed += len(batch)
			res.Err = err
			e.logger.Error().Err(err).
				Int("batch", i+1).
				Int("closed_so_far", res.Closed).
				Msg("batch failed, stopping run")
			break
		}

		e.store.MarkClosed(addresses)
		res.Closed += len(batch)
		for _, it := range batch {
			res.Reclaimed = res.Reclaimed.Add(it.Recoverable)
		}
		res.TxIDs = append(res.TxIDs, txID)
		e.logger.Info().
			Int("batch", i+1).
			Int("accounts", len(batch)).
			Str("tx", txID).
			Msg("batch confirmed")
	}

	res.Success = res.Closed > 0
	return res
}

// ExecuteBurn runs balance-model sweeps. Each token is its own transaction,
// so item outcomes are independent: one failure does not block the rest.
// Zero-balance tokens are marked closed without touching the network.
func (e *Engine) ExecuteBurn(ctx context.Context, items []Item, sub Submitter) Result {
	res := Result{Reclaimed: decimal.Zero}

	for _, it := range items {
		if isZeroRaw(it) {
			e.store.MarkClosed([]string{it.Address})
			res.Closed++
			continue
		}

		e.store.MarkProcessing([]string{it.Address})

		txID, err := e.submitWithRetry(ctx, []Item{it}, sub)
		if err != nil {
			e.store.MarkError([]string{it.Address})
			res.Failed++
			res.Err = err
			e.logger.Error().Err(err).Str("token", it.AssetID).Msg("sweep failed")
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			continue
		}

		e.store.MarkClosed([]string{it.Address})
		res.Closed++
		res.TxIDs = append(res.TxIDs, txID)
		e.logger.Info().Str("token", it.AssetID).Str("tx", txID).Msg("token swept")
	}

	res.Success = res.Closed > 0
	return res
}

// submitWithRetry runs one sign-send-confirm cycle under the retry policy.
// Only the winning attempt's transaction id is surfaced.
func (e *Engine) submitWithRetry(ctx context.Context, batch []Item, sub Submitter) (string, error) {
	var txID string
	err := e.policy.Do(ctx, func(attempt int) error {
		sig, sendErr := sub.SignAndSend(ctx, batch)
		if sendErr != nil {
			if !Retryable(sendErr) {
				return sendErr
			}
			e.logger.Warn().Err(sendErr).Int("attempt", attempt).Msg("submission failed")
			return &SubmissionError{Attempt: attempt, Err: sendErr}
		}
		if confirmErr := sub.Confirm(ctx, sig); confirmErr != nil {
			e.logger.Warn().Err(confirmErr).Int("attempt", attempt).Str("tx", sig).Msg("confirmation failed")
			return confirmErr
		}
		txID = sig
		return nil
	})
	if err != nil {
		return "", err
	}
	return txID, nil
}

func isZeroRaw(it Item) bool {
	return it.Balance.IsZero() || it.RawBalance == "" || it.RawBalance == "0"
}

func itemAddresses(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Address
	}
	return out
}
