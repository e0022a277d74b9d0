package nucleus

import "vmsupport/internal/defs"

// Kernel0Process records the kernel-mode launch bookkeeping
// original_source/phase3/initial.c performs for the delay daemon:
// ASID 0, full interrupt privileges, a stack reserved two pages below
// RAMTOP distinct from any user process's stack (spec.md §4.2's
// "runs under ASID 0, kernel mode, all interrupts enabled"). This
// simulation has no real process table to install the record into; it
// exists so the daemon's launch is never confused with a user-process
// spawn.
type Kernel0Process struct {
	ASID     defs.ASID // always KernelASID
	StackTop uint32

	stop chan struct{}
}

// LaunchKernel0Process starts run as the kernel-mode daemon goroutine,
// recording its reserved stack (two pages below ramTop, pageSize
// bytes each) and returning a handle whose Stop ends the loop.
func LaunchKernel0Process(ramTop uint32, pageSize uint32, run func(stop <-chan struct{})) *Kernel0Process {
	kp := &Kernel0Process{
		ASID:     defs.KernelASID,
		StackTop: ramTop - 2*pageSize,
		stop:     make(chan struct{}),
	}
	go run(kp.stop)
	return kp
}

// Stop ends the daemon's loop at its next opportunity.
func (kp *Kernel0Process) Stop() {
	close(kp.stop)
}
