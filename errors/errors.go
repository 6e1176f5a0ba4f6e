// Package errors provides error constructors that record the call site, so a
// failure surfaced from deep inside a run can be traced back to the stage
// that produced it.
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// callsite returns "file:line" for the code two frames up, which is the
// caller of New or Wrapf.
func callsite() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// New creates an error prefixed with the caller's file and line.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", callsite(), fmt.Sprintf(format, a...))
}

// Wrapf annotates err with context and the caller's file and line. The cause
// stays reachable through errors.Is and errors.As via the %w verb. A nil err
// yields nil so call sites can wrap unconditionally.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", callsite(), fmt.Sprintf(format, a...), err)
}
