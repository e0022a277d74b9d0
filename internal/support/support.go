// Package support implements the per-process support structure
// (original_source's support_t): the saved exception contexts, page
// table, and private delay semaphore the support level keeps on behalf
// of each of the spec's UPROCMAX user processes, plus the free list the
// nucleus hands one out of at process creation (spec.md §3, §9).
package support

import (
	"vmsupport/internal/defs"
	"vmsupport/internal/mem"
	"vmsupport/internal/mipscpu"
	"vmsupport/internal/nucleus"
)

// PageTableSize is the number of entries in a process's page table:
// one per addressable virtual page, the last reserved for the stack
// (original_source/h/const.h's PAGE_TABLE_SIZE).
const PageTableSize = 32

// StackPageIndex is the page-table slot reserved for the process stack.
const StackPageIndex = PageTableSize - 1

// StackPageVPN is the fixed virtual page number mapped by StackPageIndex
// (top of kuseg), original_source's STACK_PAGE_VPN.
const StackPageVPN = 0xBFFFF000

// VPNBase is the first virtual page number a process's text/data
// segment occupies; entries 0..30 are VPNBase+i*PageSize.
const VPNBase = 0x80000000

// Which of the two exception contexts a support structure carries,
// indexing OldState (spec.md §3: "PGFAULTEXCEPT and
// GENERALEXCEPT").
const (
	PgFaultExcept = 0
	GeneralExcept = 1
	numExceptions = 2
)

// Struct is one process's support structure: everything the support
// level needs to service page faults and syscalls on its behalf without
// touching nucleus-private state.
type Struct struct {
	ASID defs.ASID

	// OldState holds the exception state the nucleus saved before
	// passing control up to PGFAULTEXCEPT/GENERALEXCEPT handling.
	OldState [numExceptions]mipscpu.State

	PageTable [PageTableSize]mem.PTE

	// PrivateSem is V'd by the delay daemon to wake this process after
	// a SYS18/DELAY (spec.md §4.2).
	PrivateSem *nucleus.Sema

	next *Struct // free-list linkage; unused once allocated
}

// InitPageTable installs the identity mapping InitPageTable's caller
// expects of a freshly created process: every slot dirty, none valid,
// tagged with s's ASID, grounded on
// original_source/phase3/initProc.c's initPageTable.
func InitPageTable(s *Struct) {
	for i := 0; i < PageTableSize; i++ {
		var vpn uint32
		if i == StackPageIndex {
			vpn = StackPageVPN
		} else {
			vpn = VPNBase + uint32(i)*defs.PageSize
		}
		s.PageTable[i].EntryHi = mem.MakeEntryHi(vpn, s.ASID)
		s.PageTable[i].EntryLo = mem.EntryLoDirty
	}
}

// Pool is the free list of support structures, sized to UPROCMAX, one
// per possible user process (spec.md §9).
type Pool struct {
	mu   nucleus.CriticalSection
	free *Struct
}

// NewPool allocates a pool of n support structures, all on the free
// list.
func NewPool(n int) *Pool {
	p := &Pool{}
	for i := 0; i < n; i++ {
		s := &Struct{next: p.free}
		p.free = s
	}
	return p
}

// Alloc removes a structure from the free list for asid, initializes
// its page table, and returns it. It returns nil if the pool is
// exhausted.
func (p *Pool) Alloc(asid defs.ASID) *Struct {
	g := p.mu.Enter()
	defer g.Close()

	s := p.free
	if s == nil {
		return nil
	}
	p.free = s.next
	s.next = nil
	s.ASID = asid
	s.PrivateSem = nucleus.NewPrivate()
	InitPageTable(s)
	return s
}

// Free returns s to the pool, for reuse by a later process (spec.md
// §4.6: terminate "returns the support structure to the free pool").
func (p *Pool) Free(s *Struct) {
	g := p.mu.Enter()
	defer g.Close()

	s.next = p.free
	p.free = s
}
