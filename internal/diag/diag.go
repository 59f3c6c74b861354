// Package diag defines the diagnostic model produced by the checker.
// Diagnostics are user-facing rule violations: they are recorded and never
// abort an analysis pass. Rendering of message templates into final text
// belongs to the driver, not to this package.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ah-yu/stc/internal/position"
)

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Code identifies a diagnostic rule. Codes are stable across releases so
// that editors and build systems can match on them.
type Code int

const (
	CodeUnknown Code = iota

	// Name resolution
	CodeUndefinedIdentifier
	CodeDuplicateDeclaration
	CodeUnknownModule

	// Assignability and subtyping
	CodeNotAssignable
	CodeMissingProperty
	CodeReadonlyAssignment
	CodeConstAssignment

	// Calls
	CodeNotCallable
	CodeNotConstructable
	CodeArityMismatch
	CodeNoApplicableOverload
	CodeTypeArgumentInferenceFailed

	// Type expressions
	CodeMalformedType
	CodeUnknownTypeName
	CodeInvalidIndexedAccess
	CodeMergeConflict

	// Resource limits and internal conditions
	CodeInstantiationDepthExceeded
	CodeInternalInconsistency
)

func (c Code) String() string {
	switch c {
	case CodeUndefinedIdentifier:
		return "undefined-identifier"
	case CodeDuplicateDeclaration:
		return "duplicate-declaration"
	case CodeUnknownModule:
		return "unknown-module"
	case CodeNotAssignable:
		return "not-assignable"
	case CodeMissingProperty:
		return "missing-property"
	case CodeReadonlyAssignment:
		return "readonly-assignment"
	case CodeConstAssignment:
		return "const-assignment"
	case CodeNotCallable:
		return "not-callable"
	case CodeNotConstructable:
		return "not-constructable"
	case CodeArityMismatch:
		return "arity-mismatch"
	case CodeNoApplicableOverload:
		return "no-applicable-overload"
	case CodeTypeArgumentInferenceFailed:
		return "type-argument-inference-failed"
	case CodeMalformedType:
		return "malformed-type"
	case CodeUnknownTypeName:
		return "unknown-type-name"
	case CodeInvalidIndexedAccess:
		return "invalid-indexed-access"
	case CodeMergeConflict:
		return "merge-conflict"
	case CodeInstantiationDepthExceeded:
		return "instantiation-depth-exceeded"
	case CodeInternalInconsistency:
		return "internal-inconsistency"
	default:
		return "unknown"
	}
}

// Related points at a secondary source location that explains a diagnostic,
// such as the declaration site of a conflicting symbol.
type Related struct {
	Message string
	Span    position.Span
}

// Diagnostic represents one recorded rule violation. Message is a template
// whose %s verbs have already been filled with printed type references; the
// Args slice keeps the original operands for tooling that wants them.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Span     position.Span
	Related  []Related
	Args     []string
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s [%s]", d.Severity, d.Message, d.Code)
	if d.Span.IsValid() {
		fmt.Fprintf(&sb, " at %s", d.Span)
	}
	return sb.String()
}

// Bag is an append-only collection of diagnostics for one file pass.
type Bag struct {
	diags  []Diagnostic
	errors int
}

// NewBag creates an empty diagnostic bag.
func NewBag() *Bag {
	return &Bag{}
}

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) {
	b.diags = append(b.diags, d)
	if d.Severity == SeverityError {
		b.errors++
	}
}

// Addf appends an error-severity diagnostic with a formatted message.
func (b *Bag) Addf(code Code, span position.Span, format string, args ...interface{}) {
	printed := make([]string, 0, len(args))
	for _, a := range args {
		printed = append(printed, fmt.Sprint(a))
	}
	b.Add(Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
		Args:     printed,
	})
}

// Warnf appends a warning-severity diagnostic with a formatted message.
func (b *Bag) Warnf(code Code, span position.Span, format string, args ...interface{}) {
	b.Add(Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// Len returns the number of recorded diagnostics.
func (b *Bag) Len() int {
	return len(b.diags)
}

// ErrorCount returns the number of error-severity diagnostics.
func (b *Bag) ErrorCount() int {
	return b.errors
}

// All returns the recorded diagnostics ordered by primary span, ties kept in
// insertion order.
func (b *Bag) All() []Diagnostic {
	out := make([]Diagnostic, len(b.diags))
	copy(out, b.diags)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start.Before(out[j].Span.Start)
	})
	return out
}

// ByCode returns all diagnostics carrying the given code, in recorded order.
func (b *Bag) ByCode(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range b.diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}
