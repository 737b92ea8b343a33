package resolver

import (
	"fmt"
	"strings"
)

// Kind classifies resolution failures.
type Kind int

const (
	// KindSyntax indicates a malformed expression.
	KindSyntax Kind = iota
	// KindMissing indicates a referenced path absent with no fallback.
	KindMissing
	// KindCycle indicates context entries that reference each other such
	// that resolution cannot terminate.
	KindCycle
)

// ResolveError describes why a template could not be resolved.
type ResolveError struct {
	Kind Kind
	Expr string
	// Keys names the offending context entries for cycle errors.
	Keys    []string
	message string
}

func (e *ResolveError) Error() string {
	return e.message
}

func syntaxError(expr, format string, args ...interface{}) *ResolveError {
	return &ResolveError{
		Kind:    KindSyntax,
		Expr:    expr,
		message: fmt.Sprintf("invalid expression %q: %s", expr, fmt.Sprintf(format, args...)),
	}
}

func missingError(expr string) *ResolveError {
	return &ResolveError{
		Kind:    KindMissing,
		Expr:    expr,
		message: fmt.Sprintf("unresolved reference %q", expr),
	}
}

func cycleError(keys []string) *ResolveError {
	return &ResolveError{
		Kind:    KindCycle,
		Keys:    keys,
		message: fmt.Sprintf("circular variable reference involving: %s", strings.Join(keys, ", ")),
	}
}

// IsCycle reports whether err is a cycle resolution error.
func IsCycle(err error) bool {
	resolveErr, ok := err.(*ResolveError)
	return ok && resolveErr.Kind == KindCycle
}

// IsMissing reports whether err is a missing-reference resolution error.
func IsMissing(err error) bool {
	resolveErr, ok := err.(*ResolveError)
	return ok && resolveErr.Kind == KindMissing
}
