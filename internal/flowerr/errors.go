// Package flowerr defines the error kinds shared by the resolution packages.
//
// Three kinds exist:
//   - NotAvailable: a projection was read before it was bound, or an id does
//     not exist in the expanded node set. The caller can recover by binding
//     correctly.
//   - Validation: the flow is structurally wrong (unknown dependency, cycle,
//     bad matrix exclude, undeclared volume, broken expression). Fatal for the
//     resolution attempt.
//   - Internal: an invariant that earlier validation should have guaranteed
//     does not hold. This is a defect, not a user error.
//
// Match kinds with errors.Is against ErrNotAvailable, ErrValidation and
// ErrInternal, or errors.As against the concrete types.
package flowerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotAvailable = errors.New("not available")
	ErrValidation   = errors.New("validation failed")
	ErrInternal     = errors.New("internal invariant violation")
)

// NotAvailableError reports an unbound or unknown context.
type NotAvailableError struct {
	// Context names what was requested, e.g. "job", "batch" or a real id.
	Context string
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("Context %s is not available", e.Context)
}

func (e *NotAvailableError) Is(target error) bool {
	return target == ErrNotAvailable
}

// NotAvailable returns a *NotAvailableError for the named context.
func NotAvailable(context string) error {
	return &NotAvailableError{Context: context}
}

// ValidationError describes a structural problem and names the offending
// identifiers.
type ValidationError struct {
	Reason   string
	Subjects []string
	Err      error
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Reason)
	if len(e.Subjects) > 0 {
		quoted := make([]string, len(e.Subjects))
		for i, s := range e.Subjects {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		sb.WriteString(": ")
		sb.WriteString(strings.Join(quoted, ", "))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validation returns a *ValidationError with the given reason and subjects.
func Validation(reason string, subjects ...string) error {
	return &ValidationError{Reason: reason, Subjects: subjects}
}

// WrapValidation marks err as a validation failure. A nil err stays nil.
func WrapValidation(err error, reason string, subjects ...string) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Reason: reason, Subjects: subjects, Err: err}
}

// InternalError is returned when an invariant guaranteed by earlier checks
// is broken.
type InternalError struct {
	Detail string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Detail
}

func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}

// Internalf formats an *InternalError.
func Internalf(format string, args ...any) error {
	return &InternalError{Detail: fmt.Sprintf(format, args...)}
}
