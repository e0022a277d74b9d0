package nucleus

import "sync"

// CriticalSection models the "disable interrupts, do a short MMIO or
// TLB sequence, re-enable interrupts" idiom spec.md §5 and Design Notes
// §9 call out: a scoped guard whose release re-enables interrupts. On
// this simulation's single shared TLB, the guard is a plain mutex so
// that a probe-then-write sequence from one goroutine cannot be
// interleaved with another's (spec.md §4.1 invariant iii).
type CriticalSection struct {
	mu sync.Mutex
}

// NewCriticalSection creates an unlocked guard.
func NewCriticalSection() *CriticalSection {
	return &CriticalSection{}
}

// Guard is a held critical section; Close re-enables interrupts.
type Guard struct {
	cs *CriticalSection
}

// Enter disables interrupts for the duration of the returned guard.
func (cs *CriticalSection) Enter() *Guard {
	cs.mu.Lock()
	return &Guard{cs: cs}
}

// Close re-enables interrupts.
func (g *Guard) Close() {
	g.cs.mu.Unlock()
}
