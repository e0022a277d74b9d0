package mem

import "vmsupport/internal/defs"

// EntryLo bit flags, matching original_source/h/const.h's ENTRYLO_*
// constants.
const (
	EntryLoGlobal uint32 = 1 << 8
	EntryLoValid  uint32 = 1 << 9
	EntryLoDirty  uint32 = 1 << 10
)

// asidShift places the ASID in EntryHi bits [11:6], per spec.md §3.
const asidShift = 6

// vpnMask keeps the upper 20 bits of a 32-bit address (the VPN).
const vpnMask uint32 = 0xFFFFF000

// PTE is one 32-bit-word pair of a page table entry: EntryHi carries
// the VPN and ASID tag, EntryLo carries the frame number and flags.
type PTE struct {
	EntryHi uint32
	EntryLo uint32
}

// MakeEntryHi packs a virtual page number and ASID into an EntryHi value.
func MakeEntryHi(vpn uint32, asid defs.ASID) uint32 {
	return (vpn & vpnMask) | (uint32(asid) << asidShift)
}

// VPN extracts the virtual page number from an EntryHi value.
func VPN(entryHi uint32) uint32 {
	return entryHi & vpnMask
}

// ASIDOf extracts the ASID tag from an EntryHi value.
func ASIDOf(entryHi uint32) defs.ASID {
	return defs.ASID((entryHi >> asidShift) & 0x3F)
}

// Valid reports whether the entry's valid bit is set.
func (p *PTE) Valid() bool { return p.EntryLo&EntryLoValid != 0 }

// Frame extracts the physical frame number from EntryLo.
func (p *PTE) Frame() int { return int(p.EntryLo >> defs.VPNShift) }

// SetFrame installs frame as the mapped physical frame and marks the
// entry valid and dirty, matching the pager's step 8 (spec.md §4.1):
// pages are always installed dirty, so a later TLB-Modified exception
// on them indicates a corrupt page table, never a legitimate first write.
func (p *PTE) SetFrame(frame int) {
	p.EntryLo = (uint32(frame) << defs.VPNShift) | EntryLoValid | EntryLoDirty
}

// Invalidate clears the valid bit without disturbing the frame number,
// so a subsequent eviction can still recover which frame was mapped.
func (p *PTE) Invalidate() {
	p.EntryLo &^= EntryLoValid
}
