// Package blocks keeps track of which DATA block numbers have been seen.
package blocks

import (
	"sync"

	"github.com/kelindar/bitmap"
)

// Tracker records block numbers as they arrive. It does not interpret
// wrap-around; a block number seen twice counts once.
type Tracker struct {
	mu   sync.Mutex
	seen bitmap.Bitmap
}

func (t *Tracker) Add(block uint16) {
	t.mu.Lock()
	t.seen.Set(uint32(block))
	t.mu.Unlock()
}

func (t *Tracker) Seen(block uint16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seen.Contains(uint32(block))
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seen.Count()
}

func (t *Tracker) Highest() (uint16, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	high, ok := t.seen.Max()
	return uint16(high), ok
}

// Missing returns the blocks in 1..upTo that have not been seen, in
// ascending order.
func (t *Tracker) Missing(upTo uint16) []uint16 {
	if upTo == 0 {
		return nil
	}

	var missing bitmap.Bitmap
	missing.Grow(uint32(upTo))
	missing.Ones()

	t.mu.Lock()
	missing.AndNot(t.seen)
	t.mu.Unlock()

	lost := make([]uint16, 0)
	missing.Range(func(x uint32) {
		if x >= 1 && x <= uint32(upTo) {
			lost = append(lost, uint16(x))
		}
	})
	return lost
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	t.seen.Clear()
	t.mu.Unlock()
}
