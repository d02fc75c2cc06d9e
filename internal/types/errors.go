package types

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed enqueue request. It is raised
// at the API boundary before any write occurs and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// InvalidTransitionError reports an attempt to move a phase through a
// transition the state machine does not allow.
type InvalidTransitionError struct {
	QueueID string
	From    Status
	To      Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s: %s → %s", e.QueueID, e.From, e.To)
}

// NotFoundError reports an operation referencing a queue row that
// does not exist.
type NotFoundError struct {
	QueueID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("phase not found: %s", e.QueueID)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var it *InvalidTransitionError
	return errors.As(err, &it)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
