package chario

import (
	"testing"
	"time"

	"vmsupport/internal/device"
)

// Writing "hello" to the printer returns 5 and leaves the per-line
// mutex released (value back to 1) once the call returns, so a
// subsequent write on the same line does not block forever (spec.md
// §8 boundary scenario #4).
func TestWritePrinterFlush(t *testing.T) {
	bus := device.NewBus(1, 1, 1, 1)
	l := NewLines(bus)

	n, err := l.WritePrinter(0, []byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Fatalf("got n=%d, want 5", n)
	}
	if got := string(bus.Printers[0].Output); got != "hello" {
		t.Fatalf("printer output = %q, want %q", got, "hello")
	}

	// The mutex must have been released: a second write on the same
	// line must not block.
	done := make(chan struct{})
	go func() {
		l.WritePrinter(0, []byte("world"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second write blocked; printer mutex was not released")
	}
}

func TestWritePrinterInvalidLength(t *testing.T) {
	bus := device.NewBus(1, 1, 1, 1)
	l := NewLines(bus)

	if _, err := l.WritePrinter(0, nil); err != ErrFatal {
		t.Fatalf("got err=%v, want ErrFatal", err)
	}
	big := make([]byte, MaxLine+1)
	if _, err := l.WritePrinter(0, big); err != ErrFatal {
		t.Fatalf("got err=%v, want ErrFatal", err)
	}
}

func TestReadTerminalStopsOnNewline(t *testing.T) {
	bus := device.NewBus(1, 1, 1, 1)
	l := NewLines(bus)
	bus.Terminals[0].Feed("hi\nextra")

	buf := make([]byte, MaxLine)
	n, err := l.ReadTerminal(0, buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("got n=%d, want 3 (newline-inclusive)", n)
	}
	if string(buf[:n]) != "hi\n" {
		t.Fatalf("got %q, want %q", buf[:n], "hi\n")
	}
}

func TestReadTerminalCapsAtMaxLine(t *testing.T) {
	bus := device.NewBus(1, 1, 1, 1)
	l := NewLines(bus)
	long := make([]byte, MaxLine)
	for i := range long {
		long[i] = 'x'
	}
	bus.Terminals[0].Feed(string(long))

	buf := make([]byte, MaxLine)
	n, err := l.ReadTerminal(0, buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != MaxLine {
		t.Fatalf("got n=%d, want %d", n, MaxLine)
	}
}

