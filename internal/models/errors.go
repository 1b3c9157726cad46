package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySubmission rejects submitting blank content.
	ErrEmptySubmission = errors.New("empty submission")
	// ErrEmptyFeedback rejects a teacher grade without feedback text.
	ErrEmptyFeedback = errors.New("feedback must not be empty")
	// ErrScoreOutOfRange rejects scores outside [0, 100].
	ErrScoreOutOfRange = errors.New("score must be between 0 and 100")
	// ErrSubmissionLocked rejects content edits once a submission left draft.
	ErrSubmissionLocked = errors.New("submission locked")
	// ErrAlreadySubmitted rejects submitting the same submission twice.
	ErrAlreadySubmitted = errors.New("submission already submitted")
	// ErrAIGradePending rejects teacher grading before the AI grade arrived
	// when the direct grading path is disabled.
	ErrAIGradePending = errors.New("ai grade pending")
	// ErrInvalidTransition rejects any other out-of-order status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConcurrentUpdate reports that another writer changed the status first.
	ErrConcurrentUpdate = errors.New("submission was modified concurrently")
	// ErrTaskInUse rejects deleting a task that submissions still reference.
	ErrTaskInUse = errors.New("task has submissions")
)

// ValidationError reports caller input that can never be accepted.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StateError reports an operation the current status does not permit.
type StateError struct {
	Op     string
	Status SubmissionStatus
	Err    error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: %v (status %s)", e.Op, e.Err, e.Status)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a lookup by id that yielded no record. A NotFoundError
// with an empty ID matches any NotFoundError of the same entity in errors.Is.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	other, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	if other.Entity != "" && other.Entity != e.Entity {
		return false
	}
	return other.ID == "" || other.ID == e.ID
}

func validationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func stateError(op string, status SubmissionStatus, err error) error {
	return &StateError{Op: op, Status: status, Err: err}
}
