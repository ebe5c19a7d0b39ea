// Package diag consolidates Apolo's error vocabulary so the compiler and VM
// share one set of diagnostic types instead of each package growing its own,
// as the teacher's compiler/parser/interpreter packages each did.
package diag

import (
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
)

// CompileError is a single panic-mode diagnostic raised while compiling a
// chunk of source. Where is the offending token's position description —
// "at end", "at '<lexeme>'", or empty for a scanner-reported ERROR token —
// following the original implementation's errorAt.
type CompileError struct {
	Line    int
	Column  int
	Where   string
	Message string
}

func NewCompileError(line, column int, where, message string) CompileError {
	return CompileError{Line: line, Column: column, Where: where, Message: message}
}

func (e CompileError) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("[Line %d] Error: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[Line %d] Error %s: %s", e.Line, e.Where, e.Message)
}

// RuntimeError is a diagnostic raised by the VM's dispatch loop.
type RuntimeError struct {
	Line    int
	Message string
}

func NewRuntimeError(line int, message string) RuntimeError {
	return RuntimeError{Line: line, Message: message}
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[Line %d] in script", e.Message, e.Line)
}

// CompileErrors accumulates every CompileError hit during a single compile
// under panic-mode recovery, instead of aborting at the first one.
type CompileErrors struct {
	errs *multierror.Error
}

// Add records a new compile error.
func (c *CompileErrors) Add(err CompileError) {
	c.errs = multierror.Append(c.errs, err)
}

// HasErrors reports whether any error has been recorded.
func (c *CompileErrors) HasErrors() bool {
	return c.errs != nil && c.errs.Len() > 0
}

// Err returns the accumulated errors as a single error, or nil if none were
// recorded.
func (c *CompileErrors) Err() error {
	if c.errs == nil {
		return nil
	}
	return c.errs.ErrorOrNil()
}

// List returns the accumulated compile errors, in the order they were added.
func (c *CompileErrors) List() []CompileError {
	if c.errs == nil {
		return nil
	}
	out := make([]CompileError, 0, c.errs.Len())
	for _, e := range c.errs.Errors {
		if ce, ok := e.(CompileError); ok {
			out = append(out, ce)
		}
	}
	return out
}
