package dma

import (
	"bytes"
	"testing"

	"vmsupport/internal/defs"
	"vmsupport/internal/device"
	"vmsupport/internal/mem"
)

func newHarness(t *testing.T) *DMA {
	t.Helper()
	bus := device.NewBus(4, 2, 4, 16) // 32 blocks per disk, 16 per flash
	ram := mem.NewRAM(2 * device.DevicesPerLine)
	return New(ram, bus, 0, device.DevicesPerLine)
}

// A wildly out-of-range block number terminates the caller rather
// than corrupting an adjacent block (spec.md §8 boundary scenario #3).
func TestDiskWriteOutOfBoundsTerminates(t *testing.T) {
	d := newHarness(t)
	buf := bytes.Repeat([]byte{0x42}, defs.PageSize)

	_, err := d.DiskWrite(0, 1_000_000_000, buf)
	if err != ErrFatal {
		t.Fatalf("got err=%v, want ErrFatal", err)
	}
}

func TestDiskReadOutOfBoundsTerminates(t *testing.T) {
	d := newHarness(t)
	buf := make([]byte, defs.PageSize)

	_, err := d.DiskRead(0, 1_000_000_000, buf)
	if err != ErrFatal {
		t.Fatalf("got err=%v, want ErrFatal", err)
	}
}

func TestDiskInvalidIndexTerminates(t *testing.T) {
	d := newHarness(t)
	buf := make([]byte, defs.PageSize)

	if _, err := d.DiskWrite(8, 0, buf); err != ErrFatal {
		t.Fatalf("got err=%v, want ErrFatal", err)
	}
	if _, err := d.DiskWrite(-1, 0, buf); err != ErrFatal {
		t.Fatalf("got err=%v, want ErrFatal", err)
	}
}

// Writing block B then reading it back yields the original content.
func TestDiskRoundTrip(t *testing.T) {
	d := newHarness(t)
	want := bytes.Repeat([]byte{0xAB}, defs.PageSize)

	status, err := d.DiskWrite(2, 5, want)
	if err != nil || status != int32(defs.StatusReady) {
		t.Fatalf("write: status=%d err=%v", status, err)
	}

	got := make([]byte, defs.PageSize)
	status, err = d.DiskRead(2, 5, got)
	if err != nil || status != int32(defs.StatusReady) {
		t.Fatalf("read: status=%d err=%v", status, err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch")
	}
}

func TestFlashRoundTripAndBounds(t *testing.T) {
	d := newHarness(t)
	want := bytes.Repeat([]byte{0x7E}, defs.PageSize)

	status, err := d.FlashWrite(1, 3, want)
	if err != nil || status != int32(defs.StatusReady) {
		t.Fatalf("write: status=%d err=%v", status, err)
	}

	got := make([]byte, defs.PageSize)
	status, err = d.FlashRead(1, 3, got)
	if err != nil || status != int32(defs.StatusReady) {
		t.Fatalf("read: status=%d err=%v", status, err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch")
	}

	if _, err := d.FlashRead(1, 999, got); err != ErrFatal {
		t.Fatalf("got err=%v, want ErrFatal", err)
	}
}
