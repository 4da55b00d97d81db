package dust

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks an item through the scan -> select -> execute lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusClosed     Status = "closed"
	StatusError      Status = "error"
	StatusProtected  Status = "protected"
)

// Kind distinguishes how an item is reclaimed.
type Kind string

const (
	// KindWrappedNative is the chain's wrapped native asset; it carries a
	// sub-unit dust threshold instead of the exact-zero rule.
	KindWrappedNative Kind = "wrapped_native"
	// KindFungibleToken is a rent-bearing token account, reclaimed by closing.
	KindFungibleToken Kind = "fungible_token"
	// KindStandardToken is a balance-model token, swept by transferring to a
	// burn address.
	KindStandardToken Kind = "standard_token"
)

// ActionKind selects the reclaim strategy chosen at plan time.
type ActionKind string

const (
	// ActionClose bundles many close instructions into one transaction.
	ActionClose ActionKind = "close"
	// ActionBurnTransfer submits one transfer per token contract.
	ActionBurnTransfer ActionKind = "burn_transfer"
)

// Item is one candidate unit of reclaim.
type Item struct {
	// Address is the token account (rent model) or token contract (balance
	// model) being evaluated.
	Address string
	// AssetID is the underlying mint or contract identifier.
	AssetID string
	Kind    Kind
	Symbol  string
	Name    string

	// Balance is the display-unit quantity.
	Balance decimal.Decimal
	// RawBalance is the exact smallest-unit balance as an integer string.
	// Burn transfers move this amount verbatim; it must never round-trip
	// through a float.
	RawBalance string
	Decimals   uint8

	// Recoverable is the value returned to the owner when this item is
	// reclaimed. For the rent model it is the per-account rent deposit; the
	// balance model recovers nothing.
	Recoverable decimal.Decimal

	// CreatedAt is the first observed activity, nil when unknown or when the
	// protection policy is off.
	CreatedAt *time.Time

	Status   Status
	Selected bool
}

// Selectable reports whether the item can take part in the next reclaim run.
func (it Item) Selectable() bool {
	return it.Status == StatusPending
}

// Snapshot is one scan result. Rescans replace the whole snapshot; a failed
// scan still installs an empty one so stale results never linger.
type Snapshot struct {
	TotalScanned int
	DustDetected int
	// Recoverable is the sum of Item.Recoverable over selected Pending
	// items. Every mutation recomputes it.
	Recoverable decimal.Decimal
	// Items keep scan discovery order.
	Items []Item
}

// EmptySnapshot 返回一个零值快照。
func EmptySnapshot() *Snapshot {
	return &Snapshot{Recoverable: decimal.Zero}
}

// SelectedPending returns the items eligible for the next run, in order.
func (s *Snapshot) SelectedPending() []Item {
	if s == nil {
		return nil
	}
	var out []Item
	for _, it := range s.Items {
		if it.Selected && it.Status == StatusPending {
			out = append(out, it)
		}
	}
	return out
}

func recomputeRecoverable(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if it.Selected && it.Status == StatusPending {
			total = total.Add(it.Recoverable)
		}
	}
	return total
}
