// Package shared contains the state every worker of a scan writes to. Each
// type guards itself independently so that contention on one never stalls
// the other.
package shared

import (
	"sync"
	"sync/atomic"

	"github.com/holiman/uint256"

	"github.com/screa/range-scanner/pkg/types"
)

// FoundSlot is a single-assignment cell for the first match of a scan.
type FoundSlot struct {
	rec atomic.Pointer[types.FoundRecord]
}

// TrySet stores rec if the slot is still empty. It reports whether this
// call performed the write; later writers are dropped.
func (s *FoundSlot) TrySet(rec types.FoundRecord) bool {
	return s.rec.CompareAndSwap(nil, &rec)
}

// IsSet reports whether a record has been stored.
func (s *FoundSlot) IsSet() bool {
	return s.rec.Load() != nil
}

// Get returns the stored record, if any.
func (s *FoundSlot) Get() (types.FoundRecord, bool) {
	rec := s.rec.Load()
	if rec == nil {
		return types.FoundRecord{}, false
	}
	return *rec, true
}

// Counter is a monotonically increasing count of tested candidates. It is
// 256 bits wide so that the two-pass total of any valid range fits.
type Counter struct {
	mu sync.Mutex
	n  uint256.Int
}

// Add increments the counter by n.
func (c *Counter) Add(n uint64) {
	if n == 0 {
		return
	}
	c.mu.Lock()
	c.n.AddUint64(&c.n, n)
	c.mu.Unlock()
}

// Load returns a snapshot of the counter.
func (c *Counter) Load() *uint256.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(uint256.Int).Set(&c.n)
}
