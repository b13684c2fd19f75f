// Package diagnostics defines the compiler's error values.
//
// Every pass reports problems as *DiagnosticError values appended to the
// pipeline context; nothing panics across a pass boundary. Compilation fails
// iff at least one error-severity diagnostic was collected.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/synthizer/waveling/internal/token"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// ErrorCode identifies a diagnostic class. The letter names the taxonomy
// bucket: L lexical, P syntactic, N name resolution, S shape, R rate,
// V structural, F fold, X external block.
type ErrorCode string

const (
	// Lexical
	ErrL001 ErrorCode = "L001" // stray character
	ErrL002 ErrorCode = "L002" // invalid numeric literal
	ErrL003 ErrorCode = "L003" // invalid type suffix

	// Syntactic
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // missing token
	ErrP003 ErrorCode = "P003" // bad top-level structure
	ErrP004 ErrorCode = "P004" // bad statement
	ErrP005 ErrorCode = "P005" // bad shape literal
	ErrP006 ErrorCode = "P006" // expression too complex / misplaced form

	// Name resolution
	ErrN001 ErrorCode = "N001" // undeclared identifier
	ErrN002 ErrorCode = "N002" // redeclared identifier
	ErrN003 ErrorCode = "N003" // ambiguous or malformed path
	ErrN004 ErrorCode = "N004" // name used in an invalid position

	// Shape
	ErrS001 ErrorCode = "S001" // width mismatch
	ErrS002 ErrorCode = "S002" // scalar kind mismatch
	ErrS003 ErrorCode = "S003" // unresolved literal type
	ErrS004 ErrorCode = "S004" // bool where numeric required (or vice versa)
	ErrS005 ErrorCode = "S005" // bad slice/split bounds

	// Rate
	ErrR001 ErrorCode = "R001" // constant rate required
	ErrR002 ErrorCode = "R002" // block-or-slower rate required

	// Structural
	ErrV001 ErrorCode = "V001" // missing required pin
	ErrV002 ErrorCode = "V002" // unknown named pin
	ErrV003 ErrorCode = "V003" // illegal cycle
	ErrV004 ErrorCode = "V004" // illegal cross-stage edge
	ErrV005 ErrorCode = "V005" // bad buffer or cell attribute
	ErrV006 ErrorCode = "V006" // external or stage output not satisfied

	// Fold
	ErrF001 ErrorCode = "F001" // non-constant where constant required
	ErrF002 ErrorCode = "F002" // arithmetic fault during folding

	// External block
	ErrX001 ErrorCode = "X001" // malformed external block
	ErrX002 ErrorCode = "X002" // bad external value
)

// Span points at a region of source text.
type Span struct {
	Line   int
	Column int
}

// SecondarySpan attaches an extra location with its own explanation, e.g.
// the other endpoint of a mismatched edge.
type SecondarySpan struct {
	Span   Span
	Reason string
}

type DiagnosticError struct {
	Code      ErrorCode
	Severity  Severity
	Message   string
	File      string
	Span      Span
	Secondary []SecondarySpan
}

func (e *DiagnosticError) Error() string {
	var sb strings.Builder
	file := e.File
	if file == "" {
		file = "<input>"
	}
	fmt.Fprintf(&sb, "%s:%d:%d: %s[%s]: %s", file, e.Span.Line, e.Span.Column, e.Severity, e.Code, e.Message)
	for _, sec := range e.Secondary {
		fmt.Fprintf(&sb, "\n  %d:%d: %s", sec.Span.Line, sec.Span.Column, sec.Reason)
	}
	return sb.String()
}

// NewError builds an error-severity diagnostic anchored at tok.
func NewError(code ErrorCode, tok token.Token, message string) *DiagnosticError {
	return &DiagnosticError{
		Code:     code,
		Severity: SeverityError,
		Message:  message,
		Span:     Span{Line: tok.Line, Column: tok.Column},
	}
}

// NewWarning builds a warning-severity diagnostic anchored at tok.
func NewWarning(code ErrorCode, tok token.Token, message string) *DiagnosticError {
	return &DiagnosticError{
		Code:     code,
		Severity: SeverityWarning,
		Message:  message,
		Span:     Span{Line: tok.Line, Column: tok.Column},
	}
}

// WithSecondary returns e with an extra span attached.
func (e *DiagnosticError) WithSecondary(tok token.Token, reason string) *DiagnosticError {
	e.Secondary = append(e.Secondary, SecondarySpan{
		Span:   Span{Line: tok.Line, Column: tok.Column},
		Reason: reason,
	})
	return e
}

// HasErrors reports whether errs contains at least one error-severity entry.
func HasErrors(errs []*DiagnosticError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
