package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func tempLedger(t *testing.T) *FileLedger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep-log.json")
	return NewFileLedger(path, zerolog.Nop())
}

func TestFileLedgerLoadMissingFile(t *testing.T) {
	l := tempLedger(t)

	h, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("文件缺失不应报错: %v", err)
	}
	if len(h.Entries) != 0 || h.LifetimeClosed != 0 || !h.LifetimeReclaimed.IsZero() {
		t.Fatalf("缺失文件应返回零值历史: %+v", h)
	}
}

func TestFileLedgerCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep-log.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewFileLedger(path, zerolog.Nop())
	h, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("损坏文件应降级为全新历史, 不应报错: %v", err)
	}
	if len(h.Entries) != 0 {
		t.Fatalf("期望空历史, 实际 %d 条", len(h.Entries))
	}
}

func TestFileLedgerAppendCapAndTotals(t *testing.T) {
	l := tempLedger(t)
	ctx := context.Background()

	amount := decimal.RequireFromString("0.01")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var last History
	for i := 0; i < 105; i++ {
		status := StatusSuccess
		if i%5 == 0 {
			status = StatusFailed
		}
		entry := Entry{
			Timestamp:       base.Add(time.Duration(i) * time.Minute),
			SignatureOrHash: fmt.Sprintf("sig-%d", i),
			AccountsClosed:  2,
			AmountReclaimed: amount,
			WalletAddress:   "wallet",
			Chain:           "solana",
			Status:          status,
		}
		var err error
		last, err = l.Append(ctx, entry)
		if err != nil {
			t.Fatalf("append %d 失败: %v", i, err)
		}
	}

	if len(last.Entries) != MaxEntries {
		t.Fatalf("应只保留 %d 条, 实际 %d", MaxEntries, len(last.Entries))
	}
	if last.Entries[0].SignatureOrHash != "sig-104" {
		t.Fatalf("应最新在前, 实际 %s", last.Entries[0].SignatureOrHash)
	}

	// 105 appends, 21 of them failed: lifetime totals still cover every
	// Success entry ever appended, including the truncated ones.
	successes := int64(105 - 21)
	if last.LifetimeClosed != successes*2 {
		t.Fatalf("lifetime closed 期望 %d, 实际 %d", successes*2, last.LifetimeClosed)
	}
	wantReclaimed := amount.Mul(decimal.NewFromInt(successes))
	if !last.LifetimeReclaimed.Equal(wantReclaimed) {
		t.Fatalf("lifetime reclaimed 期望 %s, 实际 %s", wantReclaimed, last.LifetimeReclaimed)
	}
	if last.LastRun == nil || !last.LastRun.Equal(base.Add(104*time.Minute)) {
		t.Fatalf("lastRun 不正确: %v", last.LastRun)
	}
}

func TestFileLedgerFailedRunDoesNotCount(t *testing.T) {
	l := tempLedger(t)
	ctx := context.Background()

	h, err := l.Append(ctx, Entry{
		Timestamp:       time.Now().UTC(),
		SignatureOrHash: "none",
		AccountsClosed:  3,
		AmountReclaimed: decimal.RequireFromString("0.006"),
		Status:          StatusFailed,
	})
	if err != nil {
		t.Fatalf("append 失败: %v", err)
	}

	if h.LifetimeClosed != 0 || !h.LifetimeReclaimed.IsZero() {
		t.Fatalf("failed 记录不应计入累计: %+v", h)
	}
	if h.LastRun == nil {
		t.Fatal("failed 记录仍应更新 lastRun")
	}
}

func TestFileLedgerRoundTrip(t *testing.T) {
	l := tempLedger(t)
	ctx := context.Background()

	entry := Entry{
		Timestamp:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		SignatureOrHash: "5KtP3...",
		AccountsClosed:  7,
		AmountReclaimed: decimal.RequireFromString("0.01427496"),
		WalletAddress:   "9xQeW...",
		Chain:           "solana",
		Status:          StatusPartial,
		Error:           "batch 2 exhausted retries",
	}
	if _, err := l.Append(ctx, entry); err != nil {
		t.Fatal(err)
	}

	h, err := l.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Entries) != 1 {
		t.Fatalf("期望 1 条记录, 实际 %d", len(h.Entries))
	}
	got := h.Entries[0]
	if got.SignatureOrHash != entry.SignatureOrHash ||
		got.AccountsClosed != entry.AccountsClosed ||
		!got.AmountReclaimed.Equal(entry.AmountReclaimed) ||
		got.Status != entry.Status ||
		got.Error != entry.Error {
		t.Fatalf("字段未能完整往返: %+v", got)
	}
}
