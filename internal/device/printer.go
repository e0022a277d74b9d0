package device

import "vmsupport/internal/defs"

// Printer command code (spec.md §4.5, original_source/h/const.h).
const CmdPrintChar = 2

// Printer is one synchronous character-at-a-time printer line.
type Printer struct {
	Regs   *Registers
	Output []byte // characters printed so far, for tests/diagnostics
}

// NewPrinter creates an idle printer line.
func NewPrinter() *Printer {
	return &Printer{Regs: newRegisters()}
}

// PrintChar issues PRINTCHR for ch and returns the resulting status.
func (p *Printer) PrintChar(ch byte) defs.DeviceStatus {
	p.Output = append(p.Output, ch)
	p.Regs.complete(defs.StatusReady)
	return p.Regs.waitIO()
}
