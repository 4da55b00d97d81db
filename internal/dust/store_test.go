package dust

import (
	"testing"

	"github.com/shopspring/decimal"
)

var rent = decimal.RequireFromString("0.00203928")

func testSnapshot() *Snapshot {
	return &Snapshot{
		TotalScanned: 10,
		DustDetected: 3,
		Items: []Item{
			{Address: "a", Recoverable: rent, Status: StatusPending, Selected: true},
			{Address: "b", Recoverable: rent, Status: StatusPending, Selected: true},
			{Address: "c", Recoverable: rent, Status: StatusProtected, Selected: false},
		},
	}
}

func TestSetResultRecomputesRecoverable(t *testing.T) {
	store := NewStore()
	store.SetResult(testSnapshot())

	want := rent.Mul(decimal.NewFromInt(2))
	if got := store.Current().Recoverable; !got.Equal(want) {
		t.Fatalf("recoverable 应为 %s, 实际 %s", want, got)
	}
}

func TestToggleSelectionOnlyPending(t *testing.T) {
	store := NewStore()
	store.SetResult(testSnapshot())

	store.ToggleSelection("a")
	if got := store.Current().Recoverable; !got.Equal(rent) {
		t.Fatalf("取消选中一项后 recoverable 应为 %s, 实际 %s", rent, got)
	}

	// Protected items never toggle.
	store.ToggleSelection("c")
	if store.Current().Items[2].Selected {
		t.Fatal("受保护账户不应被选中")
	}
}

func TestSelectAllDeselectAll(t *testing.T) {
	store := NewStore()
	store.SetResult(testSnapshot())

	store.DeselectAll()
	if got := store.Current().Recoverable; !got.IsZero() {
		t.Fatalf("deselectAll 后 recoverable 应为 0, 实际 %s", got)
	}

	store.SelectAll()
	want := rent.Mul(decimal.NewFromInt(2))
	if got := store.Current().Recoverable; !got.Equal(want) {
		t.Fatalf("selectAll 应只选中 pending 项: 期望 %s, 实际 %s", want, got)
	}
	if store.Current().Items[2].Selected {
		t.Fatal("selectAll 不应选中受保护账户")
	}
}

func TestMarkTransitionsClearSelection(t *testing.T) {
	store := NewStore()
	store.SetResult(testSnapshot())

	store.MarkProcessing([]string{"a", "b"})
	if got := store.Current().Recoverable; !got.IsZero() {
		t.Fatalf("processing 项不应计入 recoverable, 实际 %s", got)
	}

	store.MarkClosed([]string{"a", "b"})
	for _, it := range store.Current().Items[:2] {
		if it.Status != StatusClosed || it.Selected {
			t.Fatalf("closed 项状态不正确: %+v", it)
		}
	}

	// Idempotent: re-marking closed items is a no-op, not an error.
	store.MarkClosed([]string{"a"})
	if store.Current().Items[0].Status != StatusClosed {
		t.Fatal("重复标记 closed 应为幂等")
	}
}

func TestMutationsDoNotEditPriorSnapshot(t *testing.T) {
	store := NewStore()
	store.SetResult(testSnapshot())
	before := store.Current()

	store.MarkError([]string{"a"})

	if before.Items[0].Status != StatusPending {
		t.Fatal("旧快照不应被原地修改")
	}
	if store.Current().Items[0].Status != StatusError {
		t.Fatal("新快照应包含 error 状态")
	}
}
