package tracker

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for classifying bootstrap failures. All of them abort a run.

// PrerequisiteError reports a missing tool or credential, detected before
// any state-changing call.
type PrerequisiteError struct {
	What string
}

func (e *PrerequisiteError) Error() string {
	return e.What
}

// NewPrerequisiteError creates a prerequisite error with a formatted message.
func NewPrerequisiteError(format string, args ...any) error {
	return &PrerequisiteError{What: fmt.Sprintf(format, args...)}
}

// ResolutionError reports a remote location that matches no accepted address shape.
// Err is set when the remote location could not be read at all.
type ResolutionError struct {
	Remote string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to read remote URL: %v", e.Err)
	}
	return fmt.Sprintf("unable to parse owner/repo from remote URL: %s", e.Remote)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// AdapterError wraps a failed call to the external system.
type AdapterError struct {
	Op      string
	Command string
	Output  string
	Err     error
}

func (e *AdapterError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(" failed")
	if e.Command != "" {
		b.WriteString(": ")
		b.WriteString(e.Command)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString(": ")
		b.WriteString(out)
	}
	return b.String()
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// ReferenceError reports a work item tag that names an unknown field or an
// unknown option of a select field.
type ReferenceError struct {
	Item   string
	Field  string
	Value  string
	Reason string
}

func (e *ReferenceError) Error() string {
	var b strings.Builder
	if e.Item != "" {
		fmt.Fprintf(&b, "item %q: ", e.Item)
	}
	fmt.Fprintf(&b, "field %q", e.Field)
	if e.Value != "" {
		fmt.Fprintf(&b, " value %q", e.Value)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// ConflictError reports an existing board field whose kind or options
// disagree with the desired field of the same name.
type ConflictError struct {
	Field  string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("field %q conflicts with existing board field: %s", e.Field, e.Reason)
}

// IsPrerequisite returns true if err is or wraps a PrerequisiteError.
func IsPrerequisite(err error) bool {
	var target *PrerequisiteError
	return errors.As(err, &target)
}

// IsResolution returns true if err is or wraps a ResolutionError.
func IsResolution(err error) bool {
	var target *ResolutionError
	return errors.As(err, &target)
}

// IsAdapter returns true if err is or wraps an AdapterError.
func IsAdapter(err error) bool {
	var target *AdapterError
	return errors.As(err, &target)
}

// IsReference returns true if err is or wraps a ReferenceError.
func IsReference(err error) bool {
	var target *ReferenceError
	return errors.As(err, &target)
}

// IsConflict returns true if err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
