package pager

import (
	"testing"

	"vmsupport/internal/defs"
	"vmsupport/internal/device"
	"vmsupport/internal/mem"
	"vmsupport/internal/mipscpu"
	"vmsupport/internal/support"
)

// fakeTable is a ProcessTable backed by a plain map, enough to exercise
// the pager without the rest of the kernel.
type fakeTable struct {
	byASID map[defs.ASID]*support.Struct
}

func newFakeTable() *fakeTable { return &fakeTable{byASID: map[defs.ASID]*support.Struct{}} }

func (t *fakeTable) Support(asid defs.ASID) *support.Struct { return t.byASID[asid] }

func (t *fakeTable) spawn(asid defs.ASID) *support.Struct {
	s := &support.Struct{ASID: asid}
	support.InitPageTable(s)
	t.byASID[asid] = s
	return s
}

func newHarness(t *testing.T, nUsers int) (*Pager, *fakeTable, *mem.RAM) {
	t.Helper()
	ram := mem.NewRAM(PoolSize)
	tlb := mipscpu.NewTLB(4)
	procs := newFakeTable()
	var flashes [defs.UPROCMAX]*device.Flash
	for i := range flashes {
		flashes[i] = device.NewFlash(support.PageTableSize)
	}
	p := NewPager(ram, tlb, procs, flashes, 0)
	for i := 1; i <= nUsers; i++ {
		procs.spawn(defs.ASID(i))
	}
	return p, procs, ram
}

func faultState(s *support.Struct, index int) {
	var vpn uint32
	if index == support.StackPageIndex {
		vpn = support.StackPageVPN
	} else {
		vpn = support.VPNBase + uint32(index)*defs.PageSize
	}
	s.OldState[support.PgFaultExcept].EntryHi = mem.MakeEntryHi(vpn, s.ASID)
}

// Exhausting the pool: 8 processes each touching 3 pages (24 faults
// against 16 frames) must still leave every resident page's table
// entry consistent with its swap-pool entry (spec.md §8 invariant,
// boundary scenario #2).
func TestPoolExhaustion(t *testing.T) {
	const users = 8
	const pagesPerUser = 3
	p, procs, _ := newHarness(t, users)

	for asid := 1; asid <= users; asid++ {
		s := procs.Support(defs.ASID(asid))
		for page := 0; page < pagesPerUser; page++ {
			faultState(s, page)
			if err := p.Fault(s); err != nil {
				t.Fatalf("asid %d page %d: unexpected fault error: %v", asid, page, err)
			}
			if !s.PageTable[page].Valid() {
				t.Fatalf("asid %d page %d: page table entry not marked valid after fault-in", asid, page)
			}
		}
	}

	// Invariant: every swap-pool entry that's occupied names a frame
	// that matches its owner's page-table entry exactly.
	seen := map[[2]int]bool{}
	for i, e := range p.entries {
		if !e.occupied() {
			continue
		}
		key := [2]int{e.asid, e.index}
		if seen[key] {
			t.Fatalf("duplicate swap-pool entry for asid %d index %d", e.asid, e.index)
		}
		seen[key] = true
		pte := procs.Support(defs.ASID(e.asid)).PageTable[e.index]
		if !pte.Valid() || pte.Frame() != i {
			t.Fatalf("asid %d index %d: page table entry does not map swap-pool frame %d", e.asid, e.index, i)
		}
	}

	if p.SwapMutexHeldBy() != defs.KernelASID {
		t.Fatalf("swap-pool mutex still held after Fault returned")
	}
}

// A page evicted to make room for another process's fault must read
// back its original content when the owning process faults on it
// again later.
func TestEvictThenRefaultRoundTrip(t *testing.T) {
	p, procs, ram := newHarness(t, 2)

	a := procs.Support(1)
	b := procs.Support(2)

	// Fill all 16 frames with process A's pages: fault indices 0..15,
	// the first 16 of A's 31 non-stack slots.
	for i := 0; i < PoolSize; i++ {
		faultState(a, i)
		if err := p.Fault(a); err != nil {
			t.Fatalf("filling pool: asid 1 page %d: %v", i, err)
		}
		marker := byte('A' + i%26)
		frame := a.PageTable[i].Frame()
		ram.Frame(frame)[0] = marker
	}

	// B's first fault evicts frame 0 (A's page 0), writing it back to
	// A's flash.
	faultState(b, 0)
	if err := p.Fault(b); err != nil {
		t.Fatalf("asid 2 page 0: %v", err)
	}
	if a.PageTable[0].Valid() {
		t.Fatalf("asid 1 page 0 should have been invalidated by eviction")
	}

	// A re-faults on its evicted page; the original marker must come
	// back, proving the write-back/read-back round trip preserved it.
	faultState(a, 0)
	if err := p.Fault(a); err != nil {
		t.Fatalf("asid 1 refault on page 0: %v", err)
	}
	frame := a.PageTable[0].Frame()
	if got := ram.Frame(frame)[0]; got != 'A' {
		t.Fatalf("round trip lost content: got %q, want 'A'", got)
	}
}

// A TLB-Modified exception on the page-fault vector always terminates
// the process; this design never installs a page clean.
func TestFaultTLBModifiedIsFatal(t *testing.T) {
	p, procs, _ := newHarness(t, 1)
	s := procs.Support(1)
	faultState(s, 0)
	s.OldState[support.PgFaultExcept].Cause = uint32(defs.ExcMod) << 2

	if err := p.Fault(s); err != ErrFatal {
		t.Fatalf("got err=%v, want ErrFatal", err)
	}
}

// An out-of-range VPN is fatal, never a panic.
func TestFaultOutOfRangeVPNIsFatal(t *testing.T) {
	p, procs, _ := newHarness(t, 1)
	s := procs.Support(1)
	s.OldState[support.PgFaultExcept].EntryHi = mem.MakeEntryHi(0x00001000, 1)

	if err := p.Fault(s); err != ErrFatal {
		t.Fatalf("got err=%v, want ErrFatal", err)
	}
}
