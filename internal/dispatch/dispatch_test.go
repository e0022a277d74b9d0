package dispatch

import (
	"testing"
	"time"

	"vmsupport/internal/chario"
	"vmsupport/internal/defs"
	"vmsupport/internal/delay"
	"vmsupport/internal/device"
	"vmsupport/internal/dma"
	"vmsupport/internal/mem"
	"vmsupport/internal/mipscpu"
	"vmsupport/internal/nucleus"
	"vmsupport/internal/pager"
	"vmsupport/internal/support"
)

type procTable struct {
	pool *support.Pool
	byID map[defs.ASID]*support.Struct
}

func (t *procTable) Support(asid defs.ASID) *support.Struct { return t.byID[asid] }

func (t *procTable) spawn(asid defs.ASID) *support.Struct {
	s := t.pool.Alloc(asid)
	t.byID[asid] = s
	return s
}

func newHarness(t *testing.T) (*Dispatcher, *procTable) {
	t.Helper()
	ram := mem.NewRAM(pager.PoolSize)
	tlb := mipscpu.NewTLB(4)
	procs := &procTable{pool: support.NewPool(defs.UPROCMAX), byID: map[defs.ASID]*support.Struct{}}
	var flashes [defs.UPROCMAX]*device.Flash
	for i := range flashes {
		flashes[i] = device.NewFlash(support.PageTableSize)
	}
	p := pager.NewPager(ram, tlb, procs, flashes, 0)

	bus := device.NewBus(4, 2, 4, 16)
	d := &Dispatcher{
		Pager:     p,
		Delay:     delay.New(defs.UPROCMAX, nucleus.NewClock(0), nucleus.NewIntervalTimer()),
		DMA:       dma.New(ram, bus, 0, 0),
		Lines:     chario.NewLines(bus),
		Pool:      procs.pool,
		Clock:     nucleus.NewClock(0),
		MasterSem: nucleus.NewSema(defs.UPROCMAX, 0),
	}
	return d, procs
}

// A process holding the swap-pool mutex that takes a program trap must
// have the mutex released (value back to 1) as part of termination,
// unblocking any other process waiting on it (spec.md §8 boundary
// scenario #5).
func TestTerminateUnderMutexReleasesIt(t *testing.T) {
	d, procs := newHarness(t)
	holder := procs.spawn(1)
	waiter := procs.spawn(2)

	d.Pager.LockSwapPool(holder.ASID)

	unblocked := make(chan struct{})
	go func() {
		d.Pager.LockSwapPool(waiter.ASID)
		d.Pager.UnlockSwapPool()
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("waiter acquired the mutex before it was released")
	case <-time.After(50 * time.Millisecond):
	}

	holder.OldState[support.GeneralExcept].Cause = uint32(defs.ExcRI) << 2
	d.HandleGeneralException(holder)

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the mutex after termination")
	}

	if !d.MasterSem.TryP() {
		t.Fatal("master completion semaphore was not V'd by termination")
	}
}

func TestProgramTrapTerminatesProcess(t *testing.T) {
	d, procs := newHarness(t)
	s := procs.spawn(1)
	s.OldState[support.GeneralExcept].Cause = uint32(defs.ExcAdEL) << 2

	var terminated defs.ASID
	d.OnTerminate = func(asid defs.ASID) { terminated = asid }

	d.HandleGeneralException(s)

	if terminated != 1 {
		t.Fatalf("OnTerminate called with asid=%d, want 1", terminated)
	}
	if !d.MasterSem.TryP() {
		t.Fatal("master completion semaphore was not V'd")
	}
}

func TestSyscallGetTOD(t *testing.T) {
	d, procs := newHarness(t)
	s := procs.spawn(1)
	d.Clock.Advance(42 * time.Microsecond)

	exc := &s.OldState[support.GeneralExcept]
	exc.Cause = uint32(defs.ExcSys) << 2
	exc.A0 = int32(defs.SysGetTOD)

	d.HandleGeneralException(s)

	if exc.V0 != 42 {
		t.Fatalf("got v0=%d, want 42", exc.V0)
	}
}

func TestSyscallUnknownNumberTerminates(t *testing.T) {
	d, procs := newHarness(t)
	s := procs.spawn(1)

	exc := &s.OldState[support.GeneralExcept]
	exc.Cause = uint32(defs.ExcSys) << 2
	exc.A0 = 999

	var terminated bool
	d.OnTerminate = func(defs.ASID) { terminated = true }
	d.HandleGeneralException(s)

	if !terminated {
		t.Fatal("unknown syscall number did not terminate the process")
	}
}
