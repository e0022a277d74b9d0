// Package mipscpu models the pieces of the MIPS-like CPU the support
// level must read and write directly: the saved exception state
// ("state_t" in original_source/h/types.h) and the TLB, modeled after
// the CP0 coprocessor in _examples/SchawnnDev-awesomeVM's
// internal/mips/cop0.go (TLBP/TLBWR/TLBWI, EntryHi/EntryLo, the
// probe-failure bit in Index).
package mipscpu

import "vmsupport/internal/defs"

// State is a snapshot of the saved exception state: the registers the
// nucleus captures into a process's support structure before passing up
// control (original_source's state_t).
type State struct {
	EntryHi uint32
	Cause   uint32
	Status  uint32
	PC      uint32

	// General-purpose registers, indexed the way original_source's
	// s_a0..s_a3/s_v0 aliases index into s_reg.
	A0, A1, A2, A3 int32
	V0             int32

	// Buf stands in for dereferencing the user-space buffer address argument
	// (spec.md §4.3-§4.5's disk/flash/printer/terminal syscalls): this
	// simulation has no full user address-space walk, so the buffer
	// content itself travels alongside the saved registers.
	Buf []byte
}

// ExcCode extracts the exception code from the Cause register (the
// CAUSEMASK/EXCEPTION_CODE_SHIFT dance in original_source/h/const.h).
func (s *State) ExcCode() defs.ExcCode {
	return defs.ExcCode((s.Cause >> 2) & 0x1F)
}

// AdvancePastSyscall moves PC past the syscall instruction, so that
// resuming the process does not re-enter the same syscall (spec.md
// §4.6: "advance the saved PC past the syscall instruction").
func (s *State) AdvancePastSyscall() {
	s.PC += 4
}
