//go:build tools

package defs

// Pin the generator used for syscall_string.go so `go generate` works
// without a separate tool module. See golang.org/x/tools/cmd/stringer.
import _ "golang.org/x/tools/cmd/stringer"

//go:generate stringer -type=Syscall
