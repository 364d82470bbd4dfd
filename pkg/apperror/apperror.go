package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transports can map it without string matching.
type Kind int

const (
	// KindValidation marks malformed or missing input. No state was touched.
	KindValidation Kind = iota
	// KindBusinessRule marks input that is well-formed but not allowed right
	// now (overpayment, editing a paid invoice, ...).
	KindBusinessRule
	// KindNotFound marks a missing record.
	KindNotFound
	// KindConflict marks a concurrent-modification or uniqueness clash.
	KindConflict
)

// Error carries a kind and a human-readable reason.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation is shorthand for New(KindValidation, ...).
func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// BusinessRule is shorthand for New(KindBusinessRule, ...).
func BusinessRule(format string, args ...interface{}) *Error {
	return New(KindBusinessRule, format, args...)
}

// NotFound is shorthand for New(KindNotFound, ...).
func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

// Conflict is shorthand for New(KindConflict, ...).
func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

// KindOf extracts the kind from anywhere in err's chain. The second return is
// false when err carries no kind (treat as internal).
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
