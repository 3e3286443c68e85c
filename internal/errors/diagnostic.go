// Package errors implements the uniform diagnostic record shared by
// every compiler pass, grounded on kanso's internal/errors package
// (CompilerError + ErrorLevel), generalized to the three error-code
// families spec.md §7 defines: TYPE_*, IR_* and EVM_*.
package errors

import (
	"fmt"

	"bugc/internal/ast"
)

// Severity mirrors kanso's ErrorLevel.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is the wire format spec.md §6 defines: a severity, a
// stable code, a human message, an optional source span, and for type
// errors the expected/actual type strings.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	Loc      *ast.Position
	Expected string
	Actual   string
}

// Code constants, grouped by the three families spec.md §7 names.
const (
	// Type errors (TYPE_*)
	UndefinedVariable    = "TYPE_UNDEFINED_VARIABLE"
	TypeMismatch         = "TYPE_MISMATCH"
	InvalidOperand       = "TYPE_INVALID_OPERAND"
	InvalidOperation     = "TYPE_INVALID_OPERATION"
	NotIndexable         = "TYPE_NOT_INDEXABLE"
	NoSuchField          = "TYPE_NO_SUCH_FIELD"
	InvalidIndexType     = "TYPE_INVALID_INDEX_TYPE"
	InvalidTypeCast      = "TYPE_INVALID_TYPE_CAST"
	InvalidArgumentCount = "TYPE_INVALID_ARGUMENT_COUNT"

	// IR-generation errors (IR_*)
	UnknownType               = "IR_UNKNOWN_TYPE"
	MissingTypeInfo           = "IR_MISSING_TYPE_INFO"
	InvalidLvalue             = "IR_INVALID_LVALUE"
	BreakOutsideLoop          = "IR_BREAK_OUTSIDE_LOOP"
	ContinueOutsideLoop       = "IR_CONTINUE_OUTSIDE_LOOP"
	UnsupportedDeclarationKind = "IR_UNSUPPORTED_DECLARATION_KIND"

	// Codegen errors (EVM_*)
	MemoryAllocationFailed = "EVM_MEMORY_ALLOCATION_FAILED"
	StackTooDeepUnrecoverable = "EVM_STACK_TOO_DEEP_UNRECOVERABLE"
	UnsupportedInstruction = "EVM_UNSUPPORTED_INSTRUCTION"
)

// List is a collection of diagnostics plus the convenience queries the
// driver needs to decide pass/fail.
type List struct {
	Items []Diagnostic
}

func (l *List) Add(d Diagnostic) {
	l.Items = append(l.Items, d)
}

func (l *List) Errorf(code string, loc *ast.Position, format string, args ...any) {
	l.Add(Diagnostic{Severity: SeverityError, Code: code, Message: fmt.Sprintf(format, args...), Loc: loc})
}

func (l *List) Warnf(code string, loc *ast.Position, format string, args ...any) {
	l.Add(Diagnostic{Severity: SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...), Loc: loc})
}

func (l *List) HasErrors() bool {
	for _, d := range l.Items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (l *List) Errors() []Diagnostic   { return l.bySeverity(SeverityError) }
func (l *List) Warnings() []Diagnostic { return l.bySeverity(SeverityWarning) }
func (l *List) Infos() []Diagnostic    { return l.bySeverity(SeverityInfo) }

func (l *List) bySeverity(s Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.Items {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}
