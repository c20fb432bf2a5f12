package cmn

import "fmt"

// Assert panics with msg when cond is false, for invariants whose violation
// is a hard error rather than skip-and-warn. These assertions guard
// invariants the caller is expected to
// have already checked, not hot-path validation.
func Assert(cond bool, msg string) {
	if !cond {
		panic("assertion failed: " + msg)
	}
}

func Assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic("assertion failed: " + fmt.Sprintf(format, args...))
	}
}
