package dust

import "github.com/shopspring/decimal"

// Store holds the current scan snapshot. Mutations build a fresh snapshot
// from the previous one rather than editing items in place, so an observer
// reading the current pointer never sees a half-applied update. There is a
// single writer (the scan/execute control flow), hence no locking.
type Store struct {
	current *Snapshot
}

// NewStore 构造一个空的扫描状态存储。
func NewStore() *Store {
	return &Store{current: EmptySnapshot()}
}

// Current returns the latest snapshot.
func (s *Store) Current() *Snapshot {
	return s.current
}

// SetResult replaces the whole snapshot. The incoming snapshot's
// recoverable total is recomputed so it can never drift from the selection.
func (s *Store) SetResult(snap *Snapshot) {
	if snap == nil {
		snap = EmptySnapshot()
	}
	next := *snap
	next.Items = append([]Item(nil), snap.Items...)
	next.Recoverable = recomputeRecoverable(next.Items)
	s.current = &next
}

// ToggleSelection flips the selection of one Pending item; any other status
// makes this a no-op.
func (s *Store) ToggleSelection(address string) {
	s.mutate(func(it Item) Item {
		if it.Address == address && it.Status == StatusPending {
			it.Selected = !it.Selected
		}
		return it
	})
}

// SelectAll selects every Pending item.
func (s *Store) SelectAll() {
	s.mutate(func(it Item) Item {
		if it.Status == StatusPending {
			it.Selected = true
		}
		return it
	})
}

// DeselectAll clears selection on every item.
func (s *Store) DeselectAll() {
	s.mutate(func(it Item) Item {
		it.Selected = false
		return it
	})
}

// MarkProcessing transitions the addressed items to Processing.
func (s *Store) MarkProcessing(addresses []string) {
	s.markStatus(addresses, StatusProcessing)
}

// MarkClosed transitions the addressed items to Closed. Re-marking an
// already Closed item is a no-op.
func (s *Store) MarkClosed(addresses []string) {
	s.markStatus(addresses, StatusClosed)
}

// MarkError transitions the addressed items to Error.
func (s *Store) MarkError(addresses []string) {
	s.markStatus(addresses, StatusError)
}

func (s *Store) markStatus(addresses []string, status Status) {
	set := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		set[a] = struct{}{}
	}
	s.mutate(func(it Item) Item {
		if _, ok := set[it.Address]; ok {
			it.Status = status
			if status != StatusPending {
				it.Selected = false
			}
		}
		return it
	})
}

func (s *Store) mutate(transform func(Item) Item) {
	prev := s.current
	if prev == nil {
		prev = EmptySnapshot()
	}

	next := Snapshot{
		TotalScanned: prev.TotalScanned,
		DustDetected: prev.DustDetected,
		Recoverable:  decimal.Zero,
		Items:        make([]Item, len(prev.Items)),
	}
	for i, it := range prev.Items {
		next.Items[i] = transform(it)
	}
	next.Recoverable = recomputeRecoverable(next.Items)
	s.current = &next
}
