package dust

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const testWSOLMint = "So11111111111111111111111111111111111111112"

func testPolicy(now time.Time) Policy {
	return Policy{
		ProtectionEnabled:      false,
		ProtectionWindow:       24 * time.Hour,
		WrappedNativeThreshold: decimal.RequireFromString("0.001"),
		USDThreshold:           decimal.RequireFromString("0.01"),
		Now:                    now,
	}
}

type stubAges struct {
	ts  map[string]time.Time
	err error
}

func (s *stubAges) FirstActivity(_ context.Context, account string) (*time.Time, error) {
	if s.err != nil {
		return nil, s.err
	}
	if ts, ok := s.ts[account]; ok {
		t := ts
		return &t, nil
	}
	return nil, nil
}

func rentClassifier(ages ActivityLookup) *RentClassifier {
	return NewRentClassifier(testWSOLMint, decimal.RequireFromString("0.00203928"), ages, zerolog.Nop())
}

func TestRentClassifierDustRules(t *testing.T) {
	now := time.Now()
	holdings := []RawHolding{
		{Address: "acc1", AssetID: "mintA", Balance: decimal.Zero},
		{Address: "acc2", AssetID: "mintB", Balance: decimal.RequireFromString("5")},
		{Address: "acc3", AssetID: testWSOLMint, Balance: decimal.RequireFromString("0.0005")},
		{Address: "acc4", AssetID: testWSOLMint, Balance: decimal.RequireFromString("0.01")},
		{Address: "acc5", AssetID: "mintC", Balance: decimal.RequireFromString("0.0005")},
	}

	items := rentClassifier(nil).Classify(context.Background(), holdings, testPolicy(now))

	if len(items) != 2 {
		t.Fatalf("应识别 2 个尘埃账户, 实际 %d", len(items))
	}
	// Output follows discovery order.
	if items[0].Address != "acc1" || items[1].Address != "acc3" {
		t.Fatalf("输出顺序不正确: %v, %v", items[0].Address, items[1].Address)
	}
	if items[0].Kind != KindFungibleToken {
		t.Fatalf("零余额代币应为 fungible_token, 实际 %s", items[0].Kind)
	}
	if items[1].Kind != KindWrappedNative {
		t.Fatalf("wSOL 账户应为 wrapped_native, 实际 %s", items[1].Kind)
	}
	for _, it := range items {
		if it.Status != StatusPending || !it.Selected {
			t.Fatalf("未启用保护时应为 pending 且选中: %+v", it)
		}
		if !it.Recoverable.Equal(decimal.RequireFromString("0.00203928")) {
			t.Fatalf("每账户可回收租金不正确: %s", it.Recoverable)
		}
	}
}

func TestRentClassifierProtectionWindow(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-1 * time.Hour)
	old := now.Add(-48 * time.Hour)

	ages := &stubAges{ts: map[string]time.Time{
		"young": fresh,
		"aged":  old,
	}}

	pol := testPolicy(now)
	pol.ProtectionEnabled = true

	holdings := []RawHolding{
		{Address: "young", AssetID: "mintA", Balance: decimal.Zero},
		{Address: "aged", AssetID: "mintB", Balance: decimal.Zero},
		{Address: "unknown", AssetID: "mintC", Balance: decimal.Zero},
	}

	items := rentClassifier(ages).Classify(context.Background(), holdings, pol)
	if len(items) != 3 {
		t.Fatalf("expected 3 dust items, got %d", len(items))
	}

	if items[0].Status != StatusProtected || items[0].Selected {
		t.Fatalf("24h 内创建的账户应被保护: %+v", items[0])
	}
	if items[0].CreatedAt == nil || !items[0].CreatedAt.Equal(fresh) {
		t.Fatalf("protected item should carry its createdAt")
	}
	if items[1].Status != StatusPending || !items[1].Selected {
		t.Fatalf("超过保护窗口的账户应为 pending: %+v", items[1])
	}
	if items[2].Status != StatusPending || items[2].CreatedAt != nil {
		t.Fatalf("未知年龄的账户应保持 pending 且无 createdAt: %+v", items[2])
	}
}

func TestRentClassifierLookupFailureDoesNotAbort(t *testing.T) {
	pol := testPolicy(time.Now())
	pol.ProtectionEnabled = true

	ages := &stubAges{err: errors.New("rpc unavailable")}
	holdings := []RawHolding{
		{Address: "acc1", AssetID: "mintA", Balance: decimal.Zero},
		{Address: "acc2", AssetID: "mintB", Balance: decimal.Zero},
	}

	items := rentClassifier(ages).Classify(context.Background(), holdings, pol)
	if len(items) != 2 {
		t.Fatalf("查询失败不应中断分类, 实际 %d 项", len(items))
	}
	for _, it := range items {
		if it.Status != StatusPending || !it.Selected {
			t.Fatalf("failed lookup should leave item unprotected: %+v", it)
		}
	}
}

func TestRentClassifierDoesNotMutateInput(t *testing.T) {
	holdings := []RawHolding{
		{Address: "acc1", AssetID: "mintA", Balance: decimal.Zero},
	}
	before := holdings[0]

	_ = rentClassifier(nil).Classify(context.Background(), holdings, testPolicy(time.Now()))

	if holdings[0].Address != before.Address || !holdings[0].Balance.Equal(before.Balance) {
		t.Fatal("classify 不应修改输入")
	}
}

func TestBalanceClassifierRules(t *testing.T) {
	usd := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}

	holdings := []RawHolding{
		{AssetID: "0xaaa", Symbol: "JUNK", Balance: decimal.RequireFromString("1000"), RawBalance: "1000000000000000000000", USDValue: usd("0.005")},
		{AssetID: "0xbbb", Symbol: "GOOD", Balance: decimal.RequireFromString("2"), USDValue: usd("10")},
		{AssetID: "0xccc", Symbol: "ZERO", Balance: decimal.Zero},
		{AssetID: "", Symbol: "BNB", Balance: decimal.RequireFromString("0.000001"), USDValue: usd("0.001"), Native: true},
		{AssetID: "0xddd", Symbol: "NOQUOTE", Balance: decimal.RequireFromString("3")},
	}

	items := NewBalanceClassifier(zerolog.Nop()).Classify(holdings, testPolicy(time.Now()))

	if len(items) != 2 {
		t.Fatalf("应识别 2 个尘埃代币, 实际 %d", len(items))
	}
	if items[0].AssetID != "0xaaa" || items[1].AssetID != "0xccc" {
		t.Fatalf("unexpected dust set: %s, %s", items[0].AssetID, items[1].AssetID)
	}
	for _, it := range items {
		if it.Selected {
			t.Fatalf("余额模型初始不应选中: %+v", it)
		}
		if !it.Recoverable.IsZero() {
			t.Fatalf("burn 模型无可回收金额: %s", it.Recoverable)
		}
		if it.Kind != KindStandardToken {
			t.Fatalf("expected standard_token, got %s", it.Kind)
		}
	}
}
