package invariants

import "fmt"

// Check panics with a formatted message when cond is false and invariants are
// enabled. Callers on hot paths should still guard the call with Enabled so the
// arguments are never evaluated in release builds.
func Check(cond bool, format string, args ...any) {
	if Enabled && !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
