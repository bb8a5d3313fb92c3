package reconcile

import "sync"

// IDAllocator hands out identifiers for rows synthesized by reconciliation.
// Implementations must never reuse a value, even after rows are pruned.
type IDAllocator interface {
	NextID() (int64, error)
}

// Sequence is an in-memory monotonic IDAllocator.
type Sequence struct {
	mu   sync.Mutex
	next int64
}

// NewSequence returns a sequence whose first value is start.
func NewSequence(start int64) *Sequence {
	if start < 1 {
		start = 1
	}
	return &Sequence{next: start}
}

func (s *Sequence) NextID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	return id, nil
}
