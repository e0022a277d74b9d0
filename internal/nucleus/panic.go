package nucleus

import "fmt"

// PanicError is the payload of a fatal kernel panic (spec.md §7):
// backing-store failure or a nucleus invariant violation. It stops the
// whole simulated system, unlike process termination, which only
// removes the faulting process.
type PanicError struct {
	Reason string
}

func (p *PanicError) Error() string { return "panic: " + p.Reason }

// Panic raises a fatal kernel panic. Callers never recover from this in
// production; tests may recover to assert that a specific failure mode
// (e.g. a non-ready flash status) is indeed treated as fatal.
func Panic(format string, args ...any) {
	panic(&PanicError{Reason: fmt.Sprintf(format, args...)})
}
