// Package dispatch implements the support-level exception dispatcher:
// classifying pass-up exceptions into program traps versus system
// calls, routing the ten user syscalls, and the shared termination
// procedure, grounded on original_source/phase3/sysSupport.c and
// spec.md §4.6.
package dispatch

import (
	"vmsupport/internal/chario"
	"vmsupport/internal/defs"
	"vmsupport/internal/delay"
	"vmsupport/internal/dma"
	"vmsupport/internal/mipscpu"
	"vmsupport/internal/nucleus"
	"vmsupport/internal/pager"
	"vmsupport/internal/support"
)

// Dispatcher wires the four components a general-exception or
// page-fault pass-up needs to service, plus the primitives termination
// requires (spec.md §9's "one Kernel value" aggregation, scoped to what
// the dispatcher itself touches).
type Dispatcher struct {
	Pager     *pager.Pager
	Delay     *delay.Facility
	DMA       *dma.DMA
	Lines     *chario.Lines
	Pool      *support.Pool
	Clock     *nucleus.Clock
	MasterSem *nucleus.Sema

	// OnTerminate is the nucleus terminate primitive (spec.md §4.6's
	// final step): removes asid from scheduling for good. It is out of
	// this layer's scope; New callers provide whatever bookkeeping their
	// process table needs.
	OnTerminate func(asid defs.ASID)
}

// HandlePageFault services a page-fault pass-up (spec.md §4.1). On a
// fatal fault (TLB-Modified, bad VPN) it terminates the process instead
// of letting the caller resume it.
func (d *Dispatcher) HandlePageFault(s *support.Struct) {
	if err := d.Pager.Fault(s); err != nil {
		d.Terminate(s)
	}
}

// HandleGeneralException services a general-exception pass-up
// (spec.md §4.6): program traps terminate, SYS dispatches by a0,
// anything else terminates.
func (d *Dispatcher) HandleGeneralException(s *support.Struct) {
	exc := &s.OldState[support.GeneralExcept]
	code := exc.ExcCode()

	switch {
	case code.IsProgramTrap():
		d.Terminate(s)
	case code == defs.ExcSys:
		exc.AdvancePastSyscall()
		d.dispatchSyscall(s, exc)
	default:
		d.Terminate(s)
	}
}

func (d *Dispatcher) dispatchSyscall(s *support.Struct, exc *mipscpu.State) {
	line := int(s.ASID) - 1

	switch defs.Syscall(exc.A0) {
	case defs.SysTerminate:
		d.Terminate(s)

	case defs.SysGetTOD:
		exc.V0 = int32(d.Clock.Now())

	case defs.SysWritePrinter:
		n, err := d.Lines.WritePrinter(line, exc.Buf)
		if err != nil {
			d.Terminate(s)
			return
		}
		exc.V0 = n

	case defs.SysWriteTerminal:
		n, err := d.Lines.WriteTerminal(line, exc.Buf)
		if err != nil {
			d.Terminate(s)
			return
		}
		exc.V0 = n

	case defs.SysReadTerminal:
		n, err := d.Lines.ReadTerminal(line, exc.Buf)
		if err != nil {
			d.Terminate(s)
			return
		}
		exc.V0 = n

	case defs.SysDiskWrite:
		status, err := d.DMA.DiskWrite(int(exc.A1), int(exc.A2), exc.Buf)
		if err != nil {
			d.Terminate(s)
			return
		}
		exc.V0 = status

	case defs.SysDiskRead:
		status, err := d.DMA.DiskRead(int(exc.A1), int(exc.A2), exc.Buf)
		if err != nil {
			d.Terminate(s)
			return
		}
		exc.V0 = status

	case defs.SysFlashRead:
		status, err := d.DMA.FlashRead(int(exc.A1), int(exc.A2), exc.Buf)
		if err != nil {
			d.Terminate(s)
			return
		}
		exc.V0 = status

	case defs.SysFlashWrite:
		status, err := d.DMA.FlashWrite(int(exc.A1), int(exc.A2), exc.Buf)
		if err != nil {
			d.Terminate(s)
			return
		}
		exc.V0 = status

	case defs.SysDelay:
		if err := d.Delay.Delay(s, exc.A1); err != nil {
			d.Terminate(s)
			return
		}

	default:
		d.Terminate(s)
	}
}

// Terminate implements spec.md §4.6's termination procedure: release
// the swap-pool mutex if this process holds it, release every frame it
// owns, signal the master completion semaphore, return the support
// structure to its pool, then hand off to the nucleus terminate
// primitive.
func (d *Dispatcher) Terminate(s *support.Struct) {
	d.Pager.ReleaseSwapMutexIfHeld(s.ASID)
	d.Pager.Release(s.ASID)
	d.MasterSem.V()
	d.Pool.Free(s)
	if d.OnTerminate != nil {
		d.OnTerminate(s.ASID)
	}
}
