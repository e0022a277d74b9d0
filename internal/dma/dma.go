// Package dma implements DMA disk and flash I/O: geometry translation,
// per-device DMA frame staging, and the SEEKCYL/READBLK/WRITEBLK
// command sequences, grounded on
// original_source/phase3/deviceSupportDMA.c and spec.md §4.3/§4.4.
package dma

import (
	"errors"

	"vmsupport/internal/defs"
	"vmsupport/internal/device"
	"vmsupport/internal/mem"
	"vmsupport/internal/nucleus"
)

// ErrFatal signals that the caller must be terminated: an invalid
// device index, an out-of-range block number, or a non-ready SEEKCYL
// (spec.md §4.3/§4.4). A non-ready transfer status is not fatal; it is
// returned as a negated value for the caller to inspect.
var ErrFatal = errors.New("dma: fatal I/O request")

// DMA owns the reserved DMA frame banks for disk and flash transfers
// (spec.md: "frame bank reserved at a fixed offset from RAM start" for
// disk, "a separate bank" for flash) and the device bus they drive.
type DMA struct {
	ram  *mem.RAM
	bus  *device.Bus
	crit nucleus.CriticalSection

	diskFrameBase  int
	flashFrameBase int
}

// New creates a DMA layer over bus, reserving one frame per disk
// starting at diskFrameBase and one frame per flash device starting at
// flashFrameBase.
func New(ram *mem.RAM, bus *device.Bus, diskFrameBase, flashFrameBase int) *DMA {
	return &DMA{ram: ram, bus: bus, diskFrameBase: diskFrameBase, flashFrameBase: flashFrameBase}
}

func validIndex(n int) bool { return n >= 0 && n < device.DevicesPerLine }

func (d *DMA) diskFrame(diskNum int) []byte   { return d.ram.Frame(d.diskFrameBase + diskNum) }
func (d *DMA) flashFrame(flashNum int) []byte { return d.ram.Frame(d.flashFrameBase + flashNum) }

// DiskWrite implements spec.md §4.3's write procedure: copy buf into
// the disk's DMA frame, seek, then WRITEBLK.
func (d *DMA) DiskWrite(diskNum, block int, buf []byte) (int32, error) {
	if !validIndex(diskNum) {
		return 0, ErrFatal
	}
	disk := d.bus.Disks[diskNum]
	cyl, head, sect, ok := disk.Geometry(block)
	if !ok {
		return 0, ErrFatal
	}

	frame := d.diskFrame(diskNum)
	copy(frame, buf)

	if status := disk.Seek(cyl); status != defs.StatusReady {
		return 0, ErrFatal
	}
	status := disk.WriteBlock(cyl, head, sect, frame)
	if status != defs.StatusReady {
		return -int32(status), nil
	}
	return int32(defs.StatusReady), nil
}

// DiskRead implements spec.md §4.3's read procedure: seek, READBLK
// into the disk's DMA frame, then copy out to buf.
func (d *DMA) DiskRead(diskNum, block int, buf []byte) (int32, error) {
	if !validIndex(diskNum) {
		return 0, ErrFatal
	}
	disk := d.bus.Disks[diskNum]
	cyl, head, sect, ok := disk.Geometry(block)
	if !ok {
		return 0, ErrFatal
	}

	if status := disk.Seek(cyl); status != defs.StatusReady {
		return 0, ErrFatal
	}
	data, status := disk.ReadBlock(cyl, head, sect)
	if status != defs.StatusReady {
		return -int32(status), nil
	}

	frame := d.diskFrame(diskNum)
	copy(frame, data)
	copy(buf, frame)
	return int32(defs.StatusReady), nil
}

// FlashRead implements spec.md §4.4: the command issue is wrapped in
// an interrupt-disable window so the issuing call is the one that
// observes the completion.
func (d *DMA) FlashRead(flashNum, block int, buf []byte) (int32, error) {
	if !validIndex(flashNum) {
		return 0, ErrFatal
	}
	flash := d.bus.Flashes[flashNum]
	if !flash.InBounds(block) {
		return 0, ErrFatal
	}

	g := d.crit.Enter()
	data, status := flash.ReadBlock(block)
	g.Close()
	if status != defs.StatusReady {
		return -int32(status), nil
	}

	frame := d.flashFrame(flashNum)
	copy(frame, data)
	copy(buf, frame)
	return int32(defs.StatusReady), nil
}

// FlashWrite implements spec.md §4.4's write side.
func (d *DMA) FlashWrite(flashNum, block int, buf []byte) (int32, error) {
	if !validIndex(flashNum) {
		return 0, ErrFatal
	}
	flash := d.bus.Flashes[flashNum]
	if !flash.InBounds(block) {
		return 0, ErrFatal
	}

	frame := d.flashFrame(flashNum)
	copy(frame, buf)

	g := d.crit.Enter()
	status := flash.WriteBlock(block, frame)
	g.Close()
	if status != defs.StatusReady {
		return -int32(status), nil
	}
	return int32(defs.StatusReady), nil
}
