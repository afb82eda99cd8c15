package sequence

import "sync/atomic"

// Sequencer mints process-unique, strictly monotonic uint64 identifiers
// for orders and trades. Ids are never reused; the state is owned by the
// engine instance, never a package-level global.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer whose first Next returns start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next identifier.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued identifier.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}
