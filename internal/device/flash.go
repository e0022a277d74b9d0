package device

import "vmsupport/internal/defs"

// Flash is a linear-addressed DMA flash device, the per-process
// backing store for demand paging (spec.md §4.4, §6): flash device
// k-1 holds process ASID k's page images, one PageSize slot per page
// table entry (32 per process).
type Flash struct {
	Regs *Registers

	maxBlocks int
	blocks    [][]byte
}

// NewFlash creates a flash device with maxBlocks page-sized slots.
func NewFlash(maxBlocks int) *Flash {
	regs := newRegisters()
	regs.data1 = uint32(maxBlocks)
	blocks := make([][]byte, maxBlocks)
	for i := range blocks {
		blocks[i] = make([]byte, defs.PageSize)
	}
	return &Flash{Regs: regs, maxBlocks: maxBlocks, blocks: blocks}
}

// InBounds reports whether block is a valid block index for this device.
func (f *Flash) InBounds(block int) bool {
	return block >= 0 && block < f.maxBlocks
}

// ReadBlock issues READBLK for block and returns its contents and the
// resulting status. The command issue and completion wait are expected
// to be wrapped by the caller in a critical section (spec.md §4.4:
// "the command-issue is wrapped in an interrupt-disable window").
func (f *Flash) ReadBlock(block int) ([]byte, defs.DeviceStatus) {
	out := make([]byte, defs.PageSize)
	copy(out, f.blocks[block])
	f.Regs.complete(defs.StatusReady)
	return out, f.Regs.waitIO()
}

// WriteBlock issues WRITEBLK for block, persisting data, and returns
// the resulting status.
func (f *Flash) WriteBlock(block int, data []byte) defs.DeviceStatus {
	copy(f.blocks[block], data)
	f.Regs.complete(defs.StatusReady)
	return f.Regs.waitIO()
}
