// Package device models the memory-mapped device register bus
// (spec.md §6): a contiguous array of device-register quadruples,
// accessed only through a typed Registers view — never raw pointer
// arithmetic from handler code, per Design Notes §9 — plus the
// synchronous disk, flash, terminal, and printer backends that react to
// commands issued through that view.
package device

import "vmsupport/internal/defs"

// Interrupt line numbers, per spec.md §6 and original_source/h/const.h.
const (
	DiskInt     = 3
	FlashInt    = 4
	PrinterInt  = 6
	TerminalInt = 7
)

// DevicesPerLine is the number of device instances on each interrupt line.
const DevicesPerLine = 8

// Registers is the typed view onto one device's four MMIO registers
// (status, command, data0, data1). It is the only surface handler code
// touches; no package outside device pokes at raw memory.
type Registers struct {
	status  defs.DeviceStatus
	command uint32
	data0   uint32
	data1   uint32

	done chan defs.DeviceStatus
}

func newRegisters() *Registers {
	return &Registers{status: defs.StatusReady, done: make(chan defs.DeviceStatus, 1)}
}

// Status reads the device's current status register.
func (r *Registers) Status() defs.DeviceStatus { return r.status }

// Data1 reads the device's geometry/capability register.
func (r *Registers) Data1() uint32 { return r.data1 }

// SetData0 writes the device's data0 register (the DMA buffer address
// for disks/flash).
func (r *Registers) SetData0(v uint32) { r.data0 = v }

// waitIO blocks until the device signals completion and returns the
// resulting status, the support layer's view of the nucleus's SYS5
// (WAITIO).
func (r *Registers) waitIO() defs.DeviceStatus {
	return <-r.done
}

// complete delivers an asynchronous completion, waking exactly one
// waiter the way a device interrupt wakes exactly one blocked process.
func (r *Registers) complete(status defs.DeviceStatus) {
	r.status = status
	r.done <- status
}
