// Package pager implements the support level's demand-paging core:
// swap-pool frame management and the two page-fault entry points
// (the blocking pager handler and the fast-path TLB-refill handler),
// grounded on original_source/phase3/vmSupport.c and spec.md §4.1.
package pager

import (
	"errors"

	"vmsupport/internal/defs"
	"vmsupport/internal/device"
	"vmsupport/internal/mem"
	"vmsupport/internal/mipscpu"
	"vmsupport/internal/nucleus"
	"vmsupport/internal/support"
)

// PoolSize is the number of frames in the swap pool (spec.md §3).
const PoolSize = 16

// ErrFatal signals that the faulting process must be terminated:
// a TLB-Modified exception or an out-of-range VPN, per spec.md §4.1
// step 1/2. The caller (internal/dispatch) performs the termination;
// Pager only guarantees its own mutex is released before returning it.
var ErrFatal = errors.New("pager: fatal page fault")

// noFrame marks an unoccupied swap-pool entry, mirroring the
// asid=vpn=-1 convention in original_source/phase3/vmSupport.c.
const noFrame = -1

type swapEntry struct {
	asid  int // defs.ASID, or noFrame when unoccupied
	index int // page-table index owning this frame, or noFrame
}

func (e swapEntry) occupied() bool { return e.asid != noFrame }

// ProcessTable resolves a live process's support structure by ASID, so
// the pager can reach a victim frame's owner during eviction.
type ProcessTable interface {
	Support(asid defs.ASID) *support.Struct
}

// Pager owns the swap pool and the physical frames it multiplexes.
type Pager struct {
	mu     *nucleus.Sema // swap-pool mutex (spec.md §3 device semaphore set)
	heldMu nucleus.CriticalSection
	heldBy defs.ASID // 0 (KernelASID) when the swap-pool mutex is free

	crit  nucleus.CriticalSection
	ram   *mem.RAM
	tlb   *mipscpu.TLB
	procs ProcessTable

	// flashes[asid-1] is the per-process backing store consulted on
	// page-in/page-out (spec.md §6: "flash device k-1 for ASID k").
	flashes [defs.UPROCMAX]*device.Flash

	frameBase int // first physical frame the pool occupies
	entries   [PoolSize]swapEntry
	cursor    int
}

// NewPager creates an empty swap pool backed by ram starting at
// frameBase, serviced by the given TLB and process table.
func NewPager(ram *mem.RAM, tlb *mipscpu.TLB, procs ProcessTable, flashes [defs.UPROCMAX]*device.Flash, frameBase int) *Pager {
	p := &Pager{
		mu:        nucleus.NewMutex(),
		ram:       ram,
		tlb:       tlb,
		procs:     procs,
		flashes:   flashes,
		frameBase: frameBase,
	}
	for i := range p.entries {
		p.entries[i] = swapEntry{asid: noFrame, index: noFrame}
	}
	return p
}

// pageIndex computes the faulting process's page-table index for vpn,
// per spec.md §4.1 step 2: 31 for the stack VPN, otherwise an offset
// from the fixed virtual base. ok is false for an out-of-range VPN.
func pageIndex(vpn uint32) (index int, ok bool) {
	if vpn == support.StackPageVPN {
		return support.StackPageIndex, true
	}
	if vpn < support.VPNBase {
		return 0, false
	}
	index = int((vpn - support.VPNBase) / defs.PageSize)
	if index < 0 || index >= support.StackPageIndex {
		return 0, false
	}
	return index, true
}

// Fault services a page fault on behalf of s, the faulting process's
// support structure, implementing spec.md §4.1 steps 1..10. Step 11
// (resume at the saved exception state) is the caller's responsibility
// once Fault returns nil.
func (p *Pager) Fault(s *support.Struct) error {
	exc := &s.OldState[support.PgFaultExcept]

	// Step 1: TLB-Modified is impossible under this design since pages
	// are always installed dirty; treat it as fatal process corruption.
	if exc.ExcCode() == defs.ExcMod {
		return ErrFatal
	}

	// Step 2.
	vpn := mem.VPN(exc.EntryHi)
	index, ok := pageIndex(vpn)
	if !ok {
		return ErrFatal
	}

	// Step 3.
	p.LockSwapPool(s.ASID)
	defer p.UnlockSwapPool()

	// Step 4.
	frame := p.selectFrame()

	// Step 5.
	victim := p.entries[frame]
	if victim.occupied() {
		p.evict(victim, frame)
	}

	// Step 6.
	p.loadPage(s.ASID, index, frame)

	// Step 7.
	p.entries[frame] = swapEntry{asid: int(s.ASID), index: index}

	// Step 8.
	s.PageTable[index].SetFrame(p.frameBase + frame)

	// Step 9.
	p.tlb.Flush()

	return nil
}

// Refill services a TLB-refill exception: look up the faulting VPN in
// s's page table and install it with a random-indexed write (spec.md
// §4.1, "TLB refill"). It returns ErrFatal for an out-of-range VPN.
func (p *Pager) Refill(s *support.Struct, entryHi uint32) error {
	vpn := mem.VPN(entryHi)
	index, ok := pageIndex(vpn)
	if !ok {
		return ErrFatal
	}
	p.tlb.WriteRandom(s.PageTable[index])
	return nil
}

// selectFrame implements step 4: prefer any unoccupied frame, else
// advance the round-robin cursor.
func (p *Pager) selectFrame() int {
	for i, e := range p.entries {
		if !e.occupied() {
			return i
		}
	}
	frame := p.cursor
	p.cursor = (p.cursor + 1) % PoolSize
	return frame
}

// evict implements step 5: invalidate the victim's page-table entry
// and TLB line, then write its frame back to its own backing store.
func (p *Pager) evict(victim swapEntry, frame int) {
	victimSupport := p.procs.Support(defs.ASID(victim.asid))
	victimPTE := &victimSupport.PageTable[victim.index]

	g := p.crit.Enter()
	victimPTE.Invalidate()
	if idx, hit := p.tlb.Probe(victimPTE.EntryHi); hit {
		p.tlb.WriteIndexed(idx, *victimPTE)
	}
	g.Close()

	status := p.flashes[victim.asid-1].WriteBlock(victim.index, p.ram.Frame(p.frameBase+frame))
	if status != defs.StatusReady {
		nucleus.Panic("pager: flash write-back for asid %d index %d returned status %v", victim.asid, victim.index, status)
	}
}

// loadPage implements step 6: read the faulting page from the
// process's own backing store into the chosen frame.
func (p *Pager) loadPage(asid defs.ASID, index, frame int) {
	data, status := p.flashes[asid-1].ReadBlock(index)
	if status != defs.StatusReady {
		nucleus.Panic("pager: flash read for asid %d index %d returned status %v", asid, index, status)
	}
	copy(p.ram.Frame(p.frameBase+frame), data)
}

// LockSwapPool performs step 3's P and records the holder, mirroring
// the teacher's Lock_pmap/pgfltaken pattern (biscuit/src/vm/as.go) so
// the termination path can tell whether this process is the current
// holder without a racy TryAcquire probe.
func (p *Pager) LockSwapPool(asid defs.ASID) {
	p.mu.MustP()
	g := p.heldMu.Enter()
	p.heldBy = asid
	g.Close()
}

// UnlockSwapPool releases the swap-pool mutex this process holds.
func (p *Pager) UnlockSwapPool() {
	g := p.heldMu.Enter()
	p.heldBy = defs.KernelASID
	g.Close()
	p.mu.V()
}

// Release clears every swap-pool entry belonging to asid, the bulk
// frame release spec.md §4.6 requires during process termination.
// Release acquires the swap-pool mutex itself, so the caller must not
// hold it when calling this (see ReleaseSwapMutexIfHeld).
func (p *Pager) Release(asid defs.ASID) {
	p.mu.MustP()
	defer p.mu.V()
	for i := range p.entries {
		if p.entries[i].asid == int(asid) {
			p.entries[i] = swapEntry{asid: noFrame, index: noFrame}
		}
	}
}

// SwapMutexHeldBy reports which ASID currently holds the swap-pool
// mutex, or defs.KernelASID if it is free.
func (p *Pager) SwapMutexHeldBy() defs.ASID {
	g := p.heldMu.Enter()
	defer g.Close()
	return p.heldBy
}

// ReleaseSwapMutexIfHeld releases the swap-pool mutex if asid is its
// current holder, implementing the program-trap termination path's
// "release the swap-pool mutex if held" step (spec.md §4.6): a
// terminating process may have trapped out of Fault while still
// holding the mutex, and termination must not deadlock waiting for a
// lock its own process will never release.
func (p *Pager) ReleaseSwapMutexIfHeld(asid defs.ASID) {
	g := p.heldMu.Enter()
	held := p.heldBy == asid
	if held {
		p.heldBy = defs.KernelASID
	}
	g.Close()
	if held {
		p.mu.V()
	}
}
