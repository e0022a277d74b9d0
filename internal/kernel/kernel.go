// Package kernel aggregates the support level's global mutable state
// into one value passed by reference through every handler, per
// spec.md Design Notes §9: the swap pool, the ADL, the process table,
// and the device semaphore arrays.
package kernel

import (
	"time"

	"vmsupport/internal/chario"
	"vmsupport/internal/defs"
	"vmsupport/internal/delay"
	"vmsupport/internal/device"
	"vmsupport/internal/dispatch"
	"vmsupport/internal/dma"
	"vmsupport/internal/mem"
	"vmsupport/internal/mipscpu"
	"vmsupport/internal/nucleus"
	"vmsupport/internal/pager"
	"vmsupport/internal/support"
)

// tickInterval is how often the pseudo-clock broadcasts a tick to
// anything blocked in IntervalTimer.Wait, standing in for the
// original interval timer's periodic interrupt (spec.md §4.2).
const tickInterval = 100 * time.Millisecond

// Geometry constants for the simulated disk/flash population. Chosen
// so a disk has comfortably more blocks than a process's page table,
// exercising geometry translation without a contrived fixture.
const (
	diskCylinders = 8
	diskHeads     = 4
	diskSectors   = 8
	flashBlocks   = support.PageTableSize

	tlbSize = 16 // small fully-associative TLB, per spec.md §3
)

// Kernel wires every support-level component over one shared RAM,
// device bus, and process table, and satisfies pager.ProcessTable so
// the pager can resolve a victim frame's owner.
type Kernel struct {
	RAM   *mem.RAM
	TLB   *mipscpu.TLB
	Bus   *device.Bus
	Pool  *support.Pool
	Pager *pager.Pager
	Delay *delay.Facility
	DMA   *dma.DMA
	Lines *chario.Lines

	Clock     *nucleus.Clock
	Timer     *nucleus.IntervalTimer
	MasterSem *nucleus.Sema
	Dispatch  *dispatch.Dispatcher

	daemon   *nucleus.Kernel0Process
	tickStop chan struct{}

	procMu nucleus.CriticalSection
	procs  map[defs.ASID]*support.Struct
}

// New boots a Kernel: empty swap pool, empty ADL (with its daemon
// already running), a populated device bus, and an empty process
// table.
func New() *Kernel {
	nframes := pager.PoolSize + 2*device.DevicesPerLine
	ram := mem.NewRAM(nframes)
	tlb := mipscpu.NewTLB(tlbSize)
	bus := device.NewBus(diskCylinders, diskHeads, diskSectors, flashBlocks)

	k := &Kernel{
		RAM:   ram,
		TLB:   tlb,
		Bus:   bus,
		Pool:  support.NewPool(defs.UPROCMAX),
		Clock: nucleus.NewClock(0),
		Timer: nucleus.NewIntervalTimer(),
		procs: map[defs.ASID]*support.Struct{},
	}

	var flashes [defs.UPROCMAX]*device.Flash
	copy(flashes[:], bus.Flashes[:defs.UPROCMAX])
	k.Pager = pager.NewPager(ram, tlb, k, flashes, 0)

	diskFrameBase := pager.PoolSize
	flashFrameBase := pager.PoolSize + device.DevicesPerLine
	k.DMA = dma.New(ram, bus, diskFrameBase, flashFrameBase)
	k.Lines = chario.NewLines(bus)
	k.Delay = delay.New(defs.UPROCMAX+1, k.Clock, k.Timer) // one descriptor per user process, plus the dummy tail
	k.MasterSem = nucleus.NewSema(defs.UPROCMAX, 0)

	k.Dispatch = &dispatch.Dispatcher{
		Pager:       k.Pager,
		Delay:       k.Delay,
		DMA:         k.DMA,
		Lines:       k.Lines,
		Pool:        k.Pool,
		Clock:       k.Clock,
		MasterSem:   k.MasterSem,
		OnTerminate: k.forget,
	}

	ramTop := uint32(nframes * mem.PageSize)
	k.daemon = nucleus.LaunchKernel0Process(ramTop, defs.PageSize, k.Delay.Run)

	k.tickStop = make(chan struct{})
	go k.runTicker()

	return k
}

// runTicker broadcasts a tick every tickInterval until Stop is called,
// standing in for the real interval-timer interrupt the delay daemon
// waits on.
func (k *Kernel) runTicker() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			k.Clock.Advance(tickInterval)
			k.Timer.Tick()
		case <-k.tickStop:
			return
		}
	}
}

// Stop ends the delay daemon and its pseudo-clock ticker.
func (k *Kernel) Stop() {
	k.daemon.Stop()
	close(k.tickStop)
	// A final tick releases a daemon blocked in Timer.Wait so it can
	// observe its stop signal.
	k.Timer.Tick()
}

// Support implements pager.ProcessTable.
func (k *Kernel) Support(asid defs.ASID) *support.Struct {
	g := k.procMu.Enter()
	defer g.Close()
	return k.procs[asid]
}

// Spawn creates a user process's support structure for asid and
// installs it in the process table, exercising
// internal/support.InitPageTable (spec.md's expansion, supplemented
// from original_source/phase3/initProc.c). It returns nil if the
// support-structure pool is exhausted.
func (k *Kernel) Spawn(asid defs.ASID) *support.Struct {
	s := k.Pool.Alloc(asid)
	if s == nil {
		return nil
	}
	g := k.procMu.Enter()
	k.procs[asid] = s
	g.Close()
	return s
}

// forget removes asid from the process table once Dispatch.Terminate
// has freed its support structure.
func (k *Kernel) forget(asid defs.ASID) {
	g := k.procMu.Enter()
	delete(k.procs, asid)
	g.Close()
}
