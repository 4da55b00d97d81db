package chain

import (
	"context"

	"dustsweep/internal/dust"
)

// Kind identifies the account model a chain follows.
type Kind string

const (
	// Solana uses rent-bearing token accounts, reclaimed by closing.
	Solana Kind = "solana"
	// BNB tracks token balances under one account; dust is swept to a burn
	// address instead of reclaimed.
	BNB Kind = "bnb"
)

// Selection is the explicit chain/network choice passed into every scan and
// execute entry point. The core never reads ambient process-wide state.
type Selection struct {
	Chain   Kind
	Network string
}

// ActionKind maps a chain to its reclaim strategy.
func (s Selection) ActionKind() dust.ActionKind {
	if s.Chain == BNB {
		return dust.ActionBurnTransfer
	}
	return dust.ActionClose
}

// HoldingsProvider enumerates a wallet's raw token holdings. A total
// failure surfaces as an error; the caller reports "zero dust found" plus
// the error rather than keeping a stale result.
type HoldingsProvider interface {
	ListHoldings(ctx context.Context, owner string) ([]dust.RawHolding, error)
}
