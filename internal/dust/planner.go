package dust

// DefaultBatchSize caps close instructions per transaction to stay under
// the transaction size limit.
const DefaultBatchSize = 20

// BatchSizeFor returns the default batch size for an action kind. Burn
// transfers are one contract call per transaction, so they never batch.
func BatchSizeFor(action ActionKind) int {
	if action == ActionBurnTransfer {
		return 1
	}
	return DefaultBatchSize
}

// Plan partitions items into ordered batches of at most maxBatchSize,
// preserving input order. Empty input yields no batches.
func Plan(items []Item, maxBatchSize int) [][]Item {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultBatchSize
	}

	var batches [][]Item
	for start := 0; start < len(items); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
