// Package kernerr holds the closed set of error kinds the mapping core can
// raise: construction-time failures, template-rewrite failures, and
// traversal/invariant failures.
package kernerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is a closed enumeration of the error categories this core reports.
type Kind string

const (
	// InvalidExpression is raised when a builder is asked to construct a
	// node from an unsupported combination of leaf kinds.
	InvalidExpression Kind = "InvalidExpression"
	// MalformedTemplate is raised by the macro rewriter on unmatched
	// braces.
	MalformedTemplate Kind = "MalformedTemplate"
	// MappingInvariantViolated is raised when the traversal finds a
	// missing mapping entry or a dangling composite reference.
	MappingInvariantViolated Kind = "MappingInvariantViolated"
	// UnknownOperator is raised when an operator tag falls outside the
	// declared enum range.
	UnknownOperator Kind = "UnknownOperator"
)

// Error carries a Kind plus enough context to locate the offending node
// or macro span. NodeIndex is -1 when the error has no associated node.
type Error struct {
	Kind       Kind
	Message    string
	NodeIndex  int
	MacroStart int
	MacroEnd   int
}

func (e *Error) Error() string {
	switch e.Kind {
	case MalformedTemplate:
		if e.MacroStart >= 0 {
			return fmt.Sprintf("%s: %s (span %d:%d)", e.Kind, e.Message, e.MacroStart, e.MacroEnd)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		if e.NodeIndex >= 0 {
			return fmt.Sprintf("%s: %s (node %d)", e.Kind, e.Message, e.NodeIndex)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// New builds an *Error not tied to any particular node (NodeIndex -1).
func New(kind Kind, message string) error {
	return errors.WithStack(&Error{Kind: kind, Message: message, NodeIndex: -1, MacroStart: -1, MacroEnd: -1})
}

// AtNode builds an *Error tied to a specific tree node index.
func AtNode(kind Kind, message string, nodeIndex int) error {
	return errors.WithStack(&Error{Kind: kind, Message: message, NodeIndex: nodeIndex, MacroStart: -1, MacroEnd: -1})
}

// AtMacro builds a MalformedTemplate error tied to the offending macro
// span within the template text being rewritten.
func AtMacro(message string, start, end int) error {
	return errors.WithStack(&Error{Kind: MalformedTemplate, Message: message, NodeIndex: -1, MacroStart: start, MacroEnd: end})
}

// As reports whether err wraps a *Error, returning it if so.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
