package history

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MaxEntries caps the retained run log. Lifetime totals accumulate at
// append time, so truncation never loses them.
const MaxEntries = 100

// Status is the recorded outcome of one run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Entry is the persisted record of one completed reclaim run.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	// SignatureOrHash is the first successful transaction id, or "none".
	SignatureOrHash string          `json:"signature"`
	AccountsClosed  int             `json:"accountsClosed"`
	AmountReclaimed decimal.Decimal `json:"amountReclaimed"`
	WalletAddress   string          `json:"walletAddress"`
	Chain           string          `json:"chain"`
	Status          Status          `json:"status"`
	Error           string          `json:"error,omitempty"`
}

// History is the durable run log plus lifetime totals.
type History struct {
	LastRun           *time.Time      `json:"lastRun"`
	LifetimeReclaimed decimal.Decimal `json:"lifetimeReclaimed"`
	LifetimeClosed    int64           `json:"lifetimeClosed"`
	// Entries are most-recent-first.
	Entries []Entry `json:"entries"`
}

// NewHistory 返回零值历史记录。
func NewHistory() History {
	return History{LifetimeReclaimed: decimal.Zero}
}

// Ledger persists run history. Load degrades corrupt or missing state to a
// fresh history rather than failing.
type Ledger interface {
	Load(ctx context.Context) (History, error)
	Append(ctx context.Context, entry Entry) (History, error)
}

// apply prepends the entry, rolls the totals, and truncates to the cap.
// Only Success and Partial runs count toward lifetime totals.
func (h History) apply(entry Entry) History {
	next := h
	next.Entries = append([]Entry{entry}, h.Entries...)
	if len(next.Entries) > MaxEntries {
		next.Entries = next.Entries[:MaxEntries]
	}

	ts := entry.Timestamp
	next.LastRun = &ts

	if entry.Status == StatusSuccess || entry.Status == StatusPartial {
		next.LifetimeReclaimed = h.LifetimeReclaimed.Add(entry.AmountReclaimed)
		next.LifetimeClosed = h.LifetimeClosed + int64(entry.AccountsClosed)
	}
	return next
}
