package device

import (
	"vmsupport/internal/defs"

	"github.com/charmbracelet/x/vt"
)

// Terminal command codes (spec.md §4.5, original_source/h/const.h).
const (
	CmdTransmitChar = 2
	CmdReceiveChar  = 2
)

// Terminal is one simulated terminal line. Its transmit side renders
// into a charmbracelet/x/vt virtual-terminal emulator so a test (or the
// cmd/vmsupportsim driver) can inspect on-screen cell content after a
// WRITETERMINAL run, not just the returned character count; its receive
// side is driven by an injectable byte queue standing in for a keyboard.
type Terminal struct {
	TransmitRegs *Registers
	ReceiveRegs  *Registers

	screen *vt.Emulator
	input  chan byte
}

// NewTerminal creates a terminal with an 80x24 screen.
func NewTerminal() *Terminal {
	return &Terminal{
		TransmitRegs: newRegisters(),
		ReceiveRegs:  newRegisters(),
		screen:       vt.NewEmulator(80, 24),
		input:        make(chan byte, 256),
	}
}

// TransmitChar issues TRANSMITCHAR for ch, rendering it onto the
// terminal's screen, and returns the resulting status (StatusCharOK on
// success, per spec.md §6).
func (t *Terminal) TransmitChar(ch byte) defs.DeviceStatus {
	_, _ = t.screen.Write([]byte{ch})
	t.TransmitRegs.complete(defs.StatusCharOK)
	return t.TransmitRegs.waitIO()
}

// Feed enqueues characters as if typed at the keyboard, for ReceiveChar
// to consume.
func (t *Terminal) Feed(s string) {
	for i := 0; i < len(s); i++ {
		t.input <- s[i]
	}
}

// ReceiveChar issues RECEIVECHAR, blocking until a character is
// available, and returns it with the resulting status.
func (t *Terminal) ReceiveChar() (byte, defs.DeviceStatus) {
	ch := <-t.input
	t.ReceiveRegs.complete(defs.StatusCharOK)
	status := t.ReceiveRegs.waitIO()
	return ch, status
}

// ScreenText returns the terminal's rendered row y as plain text, for
// assertions in tests and the CLI driver.
func (t *Terminal) ScreenText(y int) string {
	cols := t.screen.Width()
	b := make([]byte, 0, cols)
	for x := 0; x < cols; x++ {
		cell := t.screen.CellAt(x, y)
		if cell == nil || cell.Content == "" {
			b = append(b, ' ')
			continue
		}
		b = append(b, cell.Content...)
	}
	return string(b)
}
