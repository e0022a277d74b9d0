// Package chario implements printer and terminal character I/O under
// per-line mutual exclusion, grounded on spec.md §4.5: printer/terminal
// write transmit a local copy of the caller's buffer one character at a
// time; terminal read drains characters until a newline or the 128
// character cap.
package chario

import (
	"errors"

	"vmsupport/internal/defs"
	"vmsupport/internal/device"
	"vmsupport/internal/nucleus"
)

// MaxLine is the largest buffer length accepted by a write, and the
// hard cap on a single terminal read (spec.md §4.5).
const MaxLine = 128

// ErrFatal signals that the caller must be terminated: an invalid
// length or an out-of-range line index. A non-success device status
// mid-transfer is not fatal; it is returned as a negated status.
var ErrFatal = errors.New("chario: fatal request")

// Lines owns the per-device-line mutexes guarding printer, terminal
// transmit, and terminal receive access (spec.md §3's device semaphore
// set).
type Lines struct {
	bus *device.Bus

	printerMu  [device.DevicesPerLine]*nucleus.Sema
	transmitMu [device.DevicesPerLine]*nucleus.Sema
	receiveMu  [device.DevicesPerLine]*nucleus.Sema

	crit nucleus.CriticalSection
}

// NewLines creates the per-line mutex set over bus, every mutex
// starting unlocked.
func NewLines(bus *device.Bus) *Lines {
	l := &Lines{bus: bus}
	for i := range l.printerMu {
		l.printerMu[i] = nucleus.NewMutex()
		l.transmitMu[i] = nucleus.NewMutex()
		l.receiveMu[i] = nucleus.NewMutex()
	}
	return l
}

func validLine(n int) bool { return n >= 0 && n < device.DevicesPerLine }

// WritePrinter implements spec.md §4.5's printer write: validates
// length, copies buf defensively, then transmits one character at a
// time under the line's mutex.
func (l *Lines) WritePrinter(line int, buf []byte) (int32, error) {
	if !validLine(line) || len(buf) < 1 || len(buf) > MaxLine {
		return 0, ErrFatal
	}
	local := append([]byte(nil), buf...)

	l.printerMu[line].MustP()
	defer l.printerMu[line].V()

	printer := l.bus.Printers[line]
	for _, ch := range local {
		g := l.crit.Enter()
		status := printer.PrintChar(ch)
		g.Close()
		if status != defs.StatusReady {
			return -int32(status), nil
		}
	}
	return int32(len(local)), nil
}

// WriteTerminal implements spec.md §4.5's terminal write.
func (l *Lines) WriteTerminal(line int, buf []byte) (int32, error) {
	if !validLine(line) || len(buf) < 1 || len(buf) > MaxLine {
		return 0, ErrFatal
	}
	local := append([]byte(nil), buf...)

	l.transmitMu[line].MustP()
	defer l.transmitMu[line].V()

	term := l.bus.Terminals[line]
	for _, ch := range local {
		g := l.crit.Enter()
		status := term.TransmitChar(ch)
		g.Close()
		if status != defs.StatusCharOK {
			return -int32(status), nil
		}
	}
	return int32(len(local)), nil
}

// ReadTerminal implements spec.md §4.5's terminal read: drains
// characters into buf until a newline (included in the count, per
// spec.md §9's resolved draft) or the MaxLine cap.
func (l *Lines) ReadTerminal(line int, buf []byte) (int32, error) {
	if !validLine(line) {
		return 0, ErrFatal
	}

	l.receiveMu[line].MustP()
	defer l.receiveMu[line].V()

	term := l.bus.Terminals[line]
	var n int32
	for n < MaxLine {
		ch, status := term.ReceiveChar()
		if status != defs.StatusCharOK {
			return -int32(status), nil
		}
		if int(n) < len(buf) {
			buf[n] = ch
		}
		n++
		if ch == '\n' {
			break
		}
	}
	return n, nil
}
