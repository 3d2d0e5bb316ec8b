// Package diagnostics defines the coded errors the lowering pipeline reports.
//
// There are two tiers. Invariant violations, meaning a structural precondition
// the front-end contract guarantees turned out to be false, are constructed with
// NewError and abort the enclosing compilation unit. Heuristic misses (an
// idiom-reconstruction pass that didn't recognize a shape) are never reported
// here at all; the builders fall back to a generic lowering silently.
package diagnostics

import (
	"fmt"

	"github.com/funvibe/alchemist/internal/token"
)

// ErrorCode identifies a diagnostic category. Codes are stable across
// releases so downstream tooling can match on them.
type ErrorCode string

const (
	// Lowering contract violations (front-end handed us something the
	// typed-IR contract forbids).
	ErrL001 ErrorCode = "L001" // operator reached a layer that must not see it
	ErrL002 ErrorCode = "L002" // unassignable compound-assignment target
	ErrL003 ErrorCode = "L003" // verbatim injection template is not a constant string
	ErrL004 ErrorCode = "L004" // unknown enum constructor index
	ErrL005 ErrorCode = "L005" // malformed typed-IR node shape
	ErrL006 ErrorCode = "L006" // unresolvable name

	// IR decode errors.
	ErrD001 ErrorCode = "D001" // malformed IR document
	ErrD002 ErrorCode = "D002" // unknown node kind
	ErrD003 ErrorCode = "D003" // missing required field

	// Configuration errors.
	ErrC001 ErrorCode = "C001" // unreadable or malformed config file
	ErrC002 ErrorCode = "C002" // invalid config value

	// Cache errors.
	ErrX001 ErrorCode = "X001" // cache open/query failure
)

// DiagnosticError is a positioned, coded compilation error.
type DiagnosticError struct {
	Code    ErrorCode
	Span    token.Span
	Message string
}

// NewError creates a diagnostic for the given code at the given span.
func NewError(code ErrorCode, span token.Span, message string) *DiagnosticError {
	return &DiagnosticError{Code: code, Span: span, Message: message}
}

// Errorf creates a diagnostic with a formatted message.
func Errorf(code ErrorCode, span token.Span, format string, args ...any) *DiagnosticError {
	return NewError(code, span, fmt.Sprintf(format, args...))
}

func (e *DiagnosticError) Error() string {
	if e.Span.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", e.Span, e.Code, e.Message)
}
