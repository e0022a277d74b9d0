// Package mem models the flat physical RAM region this machine exposes:
// a contiguous byte array addressed by frame number, backing both the
// swap-pool frames the pager multiplexes and the per-device DMA frames
// the disk/flash layer owns. Grounded on the teacher's mem.Pa_t /
// mem.Physmem style (biscuit/src/mem/mem.go, biscuit/src/mem/dmap.go):
// physical memory is a byte-addressed region manipulated only through a
// small typed surface, never raw pointer arithmetic from handler code.
package mem

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// PageSize is the fixed page size in bytes for this machine.
const PageSize = 4096

// RAM is the machine's physical memory: RAMBASE..RAMBASE+len(bytes).
// Frame N covers bytes [N*PageSize, (N+1)*PageSize).
type RAM struct {
	mu    sync.Mutex
	bytes []byte
	mmap  bool
}

// NewRAM allocates nframes page-sized frames of backing memory. It
// prefers an anonymous mmap (matching how a real kernel reserves
// physical memory) and falls back to a plain Go slice when mmap is
// unavailable on the host, e.g. under certain sandboxes.
func NewRAM(nframes int) *RAM {
	size := nframes * PageSize
	if b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE); err == nil {
		return &RAM{bytes: b, mmap: true}
	}
	return &RAM{bytes: make([]byte, size)}
}

// Close releases the backing mapping, if any.
func (r *RAM) Close() error {
	if r.mmap {
		return unix.Munmap(r.bytes)
	}
	return nil
}

// Nframes returns the number of page-sized frames backing this RAM.
func (r *RAM) Nframes() int {
	return len(r.bytes) / PageSize
}

// Frame returns the byte slice for physical frame n. It panics on an
// out-of-range frame, the same way the teacher's Dmap traps a bad
// physical address rather than silently corrupting an adjacent frame.
func (r *RAM) Frame(n int) []byte {
	off := n * PageSize
	if n < 0 || off+PageSize > len(r.bytes) {
		panic(fmt.Sprintf("mem: frame %d out of range", n))
	}
	return r.bytes[off : off+PageSize]
}

// CopyIn copies src into frame n at the given byte offset.
func (r *RAM) CopyIn(n, off int, src []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy(r.Frame(n)[off:], src)
}

// CopyOut copies len(dst) bytes out of frame n at the given byte offset.
func (r *RAM) CopyOut(n, off int, dst []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy(dst, r.Frame(n)[off:])
}
