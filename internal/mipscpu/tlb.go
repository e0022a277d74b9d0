package mipscpu

import "vmsupport/internal/mem"

// indexProbeFail mirrors the P bit (bit 31) in the hardware Index
// register: set when a TLBP probe finds no matching entry.
const indexProbeFail = 1 << 31

// TLB is a small fully-associative translation cache, modeled after
// the single-entry-match semantics of awesomeVM's COP0.TLBP/TLBWR/TLBWI
// (internal/mips/cop0.go) but keyed on a full VPN (not VPN2, since this
// machine has no odd/even page pairing).
type TLB struct {
	entries []mem.PTE
	random  int
}

// NewTLB creates a TLB with the given number of entries.
func NewTLB(size int) *TLB {
	return &TLB{entries: make([]mem.PTE, size)}
}

// Probe searches for an entry whose EntryHi (VPN+ASID) matches entryHi.
// It returns the entry's index and true on a hit, matching TLBP leaving
// the probe-failure bit clear in Index.
func (t *TLB) Probe(entryHi uint32) (int, bool) {
	for i := range t.entries {
		if t.entries[i].EntryLo&mem.EntryLoValid != 0 && t.entries[i].EntryHi == entryHi {
			return i, true
		}
	}
	return 0 | indexProbeFail, false
}

// WriteIndexed overwrites the TLB entry at the given index (TLBWI),
// used by the pager's targeted invalidation of a victim's line.
func (t *TLB) WriteIndexed(index int, entry mem.PTE) {
	t.entries[index] = entry
}

// WriteRandom installs entry into the next round-robin slot (TLBWR),
// used by the refill handler (the pager flushes the TLB after a fault).
func (t *TLB) WriteRandom(entry mem.PTE) {
	t.entries[t.random] = entry
	t.random = (t.random + 1) % len(t.entries)
}

// Flush invalidates every entry (a full TLB flush, the "safest and
// sufficient" option spec.md §4.1 calls out for this small TLB).
func (t *TLB) Flush() {
	for i := range t.entries {
		t.entries[i] = mem.PTE{}
	}
}
