// Package nucleus stands in for the external collaborator spec.md §1
// places out of scope: process queues, ASL semaphore maintenance,
// interrupt dispatch, and the interval-timer tick. It is a minimal,
// in-process simulation sufficient to drive and test the support level
// without real MIPS hardware underneath it.
package nucleus

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Sema is an integer semaphore under the P/V discipline (spec.md §5):
// P blocks until a unit is available, V makes one available. It is
// built on golang.org/x/sync/semaphore.Weighted, which models exactly
// this "N units, acquire blocks until available" resource accounting;
// a semaphore created with fewer held units than its capacity is
// drained immediately so its steady-state value matches the spec's
// initial-value table (swap-pool/ADL/device mutexes start at 1, the
// master completion and private delay semaphores start at 0).
type Sema struct {
	w *semaphore.Weighted
}

// NewSema creates a semaphore with the given capacity, pre-acquiring
// capacity-initial units so its effective starting value is initial.
func NewSema(capacity, initial int) *Sema {
	w := semaphore.NewWeighted(int64(capacity))
	if held := capacity - initial; held > 0 {
		if !w.TryAcquire(int64(held)) {
			panic("nucleus: bad initial semaphore value")
		}
	}
	return &Sema{w: w}
}

// NewMutex creates a binary semaphore initialized to 1 (unlocked).
func NewMutex() *Sema { return NewSema(1, 1) }

// NewPrivate creates a process's private delay semaphore, initialized
// to 0 so the first P blocks until the daemon V's it (spec.md §3).
func NewPrivate() *Sema { return NewSema(1, 0) }

// P performs the blocking wait (SYS3/PASSEREN). ctx is honored so
// tests can bound how long they wait for a misbehaving handler; real
// call sites pass context.Background(), which never times out, matching
// the nucleus's uninterruptible blocking P.
func (s *Sema) P(ctx context.Context) error {
	return s.w.Acquire(ctx, 1)
}

// MustP performs an uninterruptible P, the form every spec.md handler
// actually uses.
func (s *Sema) MustP() {
	_ = s.P(context.Background())
}

// V performs the signal (SYS4/VERHOGEN).
func (s *Sema) V() {
	s.w.Release(1)
}

// TryP attempts a non-blocking P, for callers that only want to know
// whether a unit was immediately available rather than block for one.
func (s *Sema) TryP() bool {
	return s.w.TryAcquire(1)
}
