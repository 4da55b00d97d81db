package dust

import "testing"

func TestPlanPartitionsPreservingOrder(t *testing.T) {
	items := make([]Item, 45)
	for i := range items {
		items[i] = Item{Address: string(rune('A' + i%26))}
	}

	batches := Plan(items, 20)
	if len(batches) != 3 {
		t.Fatalf("45 项应分为 3 批, 实际 %d", len(batches))
	}
	sizes := []int{20, 20, 5}
	total := 0
	for i, b := range batches {
		if len(b) != sizes[i] {
			t.Fatalf("批次 %d 大小应为 %d, 实际 %d", i, sizes[i], len(b))
		}
		total += len(b)
	}
	if total != len(items) {
		t.Fatalf("批次应覆盖全部输入: %d != %d", total, len(items))
	}
	if batches[0][0].Address != items[0].Address || batches[2][4].Address != items[44].Address {
		t.Fatal("批次应保持输入顺序")
	}
}

func TestPlanEmptyInput(t *testing.T) {
	if batches := Plan(nil, 20); len(batches) != 0 {
		t.Fatalf("空输入应得到空批次列表, 实际 %d", len(batches))
	}
}

func TestBatchSizeFor(t *testing.T) {
	if got := BatchSizeFor(ActionClose); got != 20 {
		t.Fatalf("close 默认批次应为 20, 实际 %d", got)
	}
	if got := BatchSizeFor(ActionBurnTransfer); got != 1 {
		t.Fatalf("burn 转账应逐笔执行, 实际 %d", got)
	}
}
