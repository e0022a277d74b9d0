// Package delay implements the SYS18 delay facility: a sorted Active
// Delay List serviced by a daemon that runs under kernel ASID 0,
// grounded on original_source/phase3/delayDaemon.c and spec.md §4.2.
package delay

import (
	"errors"
	"math"

	"vmsupport/internal/nucleus"
	"vmsupport/internal/support"
)

// ErrFatal signals that the calling process must be terminated: a
// negative delay count, or an exhausted descriptor pool (spec.md
// §4.2 steps 1/2). The caller (internal/dispatch) performs the
// termination.
var ErrFatal = errors.New("delay: fatal delay request")

// microsecondsPerSecond scales whole seconds to the clock's
// microsecond resolution (original_source's SECOND constant).
const microsecondsPerSecond = 1_000_000

// descriptor is one entry in the pool: either linked into the free
// list or the Active Delay List, per the {wake_time, support_ptr,
// next} shape in spec.md §3.
type descriptor struct {
	wakeTime int64
	support  *support.Struct
	next     *descriptor
}

// Facility owns the descriptor pool, the ADL, and the free list.
type Facility struct {
	mu    *nucleus.Sema // ADL mutex (spec.md §3)
	clock *nucleus.Clock
	timer *nucleus.IntervalTimer

	free *descriptor
	head *descriptor // ADL head; always non-nil once New returns (dummy tail)
}

// New creates a facility with n descriptors, one of which is reserved
// as the dummy tail sentinel (wake_time = +inf), matching
// original_source/phase3/delayDaemon.c's initADL.
func New(n int, clock *nucleus.Clock, timer *nucleus.IntervalTimer) *Facility {
	f := &Facility{mu: nucleus.NewMutex(), clock: clock, timer: timer}

	tail := &descriptor{wakeTime: math.MaxInt64}
	for i := 0; i < n-1; i++ {
		f.free = &descriptor{next: f.free}
	}
	f.head = tail
	return f
}

// Delay implements spec.md §4.2's algorithm for SYS18: it blocks the
// caller until the daemon wakes it, seconds after the call. It returns
// ErrFatal without blocking if seconds is negative or the descriptor
// pool is exhausted.
func (f *Facility) Delay(s *support.Struct, seconds int32) error {
	if seconds < 0 {
		return ErrFatal
	}

	f.mu.MustP()

	node := f.free
	if node == nil {
		f.mu.V()
		return ErrFatal
	}
	f.free = node.next

	node.wakeTime = f.clock.Now() + int64(seconds)*microsecondsPerSecond
	node.support = s
	f.insert(node)

	f.mu.V()

	s.PrivateSem.MustP()
	return nil
}

// insert splices node into the ADL in ascending wake-time order. The
// dummy tail guarantees f.head is never nil, so no nil check is needed
// mid-walk (original_source's simplifying trick).
func (f *Facility) insert(node *descriptor) {
	if node.wakeTime < f.head.wakeTime {
		node.next = f.head
		f.head = node
		return
	}
	prev := f.head
	for prev.next != nil && prev.next.wakeTime < node.wakeTime {
		prev = prev.next
	}
	node.next = prev.next
	prev.next = node
}

// RunOnce waits for one interval-timer tick, then wakes and recycles
// every expired descriptor (spec.md §4.2's daemon loop body, one
// iteration). Tests call it directly; Run loops it forever.
func (f *Facility) RunOnce() {
	f.timer.Wait()
	f.wake()
}

func (f *Facility) wake() {
	f.mu.MustP()
	defer f.mu.V()

	now := f.clock.Now()
	var prev *descriptor
	curr := f.head
	for curr != nil && curr.support != nil && curr.wakeTime <= now {
		curr.support.PrivateSem.V()

		expired := curr
		curr = curr.next
		if prev == nil {
			f.head = curr
		} else {
			prev.next = curr
		}

		expired.support = nil
		expired.next = f.free
		f.free = expired
	}
}

// Run drives the daemon loop until stop is closed, meant to be
// launched as the kernel-mode ASID-0 daemon goroutine (spec.md §4.2).
func (f *Facility) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		f.RunOnce()
	}
}
