package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing record.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing records.
var ErrNotFound = NotFoundError{}

// ValidationError represents a rejected operation: missing required
// auth, missing ownership on mutate/delete, malformed input. The
// presentation layer shows the reason; the core does not retry.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	if e.Reason == "" {
		return "validation failed"
	}
	return e.Reason
}

// Is enables errors.Is matching on ValidationError.
func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// ErrValidation is the sentinel error for rejected operations.
var ErrValidation = ValidationError{}

// ErrNotAuthenticated is returned when a remote operation needs a
// current user id and none exists.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrRemoteUnavailable marks failures talking to the remote store. The
// system continues in local-only mode when it appears.
var ErrRemoteUnavailable = errors.New("remote store unavailable")
