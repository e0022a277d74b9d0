package device

import "vmsupport/internal/defs"

// Disk command codes (spec.md §4.3, original_source/h/const.h).
const (
	CmdSeekCyl  = 2
	CmdReadBlk  = 2
	CmdWriteBlk = 3
)

// Disk is one synchronous DMA disk, addressed as (cyl, head, sect).
// Geometry is fixed at creation and exposed via Data1, matching
// spec.md §4.3: "the disk's data1 register encodes
// (max_cylinder<<16)|(max_head<<8)|max_sector".
type Disk struct {
	Regs *Registers

	maxCyl, maxHead, maxSect int
	blocks                   [][]byte // persisted block contents, cyl*head*sect blocks of PageSize
	curCyl                   int
}

// NewDisk creates a disk with the given geometry.
func NewDisk(maxCyl, maxHead, maxSect int) *Disk {
	regs := newRegisters()
	regs.data1 = uint32(maxCyl<<16) | uint32(maxHead<<8) | uint32(maxSect)
	n := maxCyl * maxHead * maxSect
	blocks := make([][]byte, n)
	for i := range blocks {
		blocks[i] = make([]byte, defs.PageSize)
	}
	return &Disk{Regs: regs, maxCyl: maxCyl, maxHead: maxHead, maxSect: maxSect, blocks: blocks}
}

// Geometry translates a linear block number to (cyl, head, sect), per
// spec.md §4.3. ok is false when the block number is out of bounds.
func (d *Disk) Geometry(block int) (cyl, head, sect int, ok bool) {
	perCyl := d.maxHead * d.maxSect
	if perCyl == 0 || block < 0 {
		return 0, 0, 0, false
	}
	cyl = block / perCyl
	rem := block % perCyl
	head = rem / d.maxSect
	sect = rem % d.maxSect
	ok = cyl < d.maxCyl && head < d.maxHead && sect < d.maxSect
	return
}

// Seek issues SEEKCYL and synchronously completes it, returning the
// resulting device status (spec.md §4.3 step 3).
func (d *Disk) Seek(cyl int) defs.DeviceStatus {
	d.curCyl = cyl
	d.Regs.complete(defs.StatusReady)
	return d.Regs.waitIO()
}

// ReadBlock issues READBLK for (head, sect) on cylinder cyl (the block
// index comes from cyl, not from the last Seek) and returns the block
// contents and resulting status.
func (d *Disk) ReadBlock(cyl, head, sect int) ([]byte, defs.DeviceStatus) {
	idx := (cyl*d.maxHead+head)*d.maxSect + sect
	out := make([]byte, defs.PageSize)
	copy(out, d.blocks[idx])
	d.Regs.complete(defs.StatusReady)
	return out, d.Regs.waitIO()
}

// WriteBlock issues WRITEBLK for (head, sect) on cylinder cyl (the
// block index comes from cyl, not from the last Seek), persisting data,
// and returns the resulting status.
func (d *Disk) WriteBlock(cyl, head, sect int, data []byte) defs.DeviceStatus {
	idx := (cyl*d.maxHead+head)*d.maxSect + sect
	copy(d.blocks[idx], data)
	d.Regs.complete(defs.StatusReady)
	return d.Regs.waitIO()
}
