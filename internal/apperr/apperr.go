// Package apperr holds the structured errors returned by the learning core.
// Nothing here produces user-facing text; the bot decides how to render them.
package apperr

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a referenced user, lesson or level does not exist
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// NotFound builds a NotFoundError
func NotFound(entity string, key interface{}) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

// StorageError wraps any failure of the underlying store
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return "storage: " + e.Op
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError. A nil err stays nil and errors that
// already carry a domain meaning pass through unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	var iv *InvariantViolation
	var se *StorageError
	if errors.As(err, &nf) || errors.As(err, &iv) || errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// InvariantViolation signals that the store returned data breaking a uniqueness guarantee
type InvariantViolation struct {
	What string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.What
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsStorage reports whether err wraps a StorageError
func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

// IsInvariant reports whether err wraps an InvariantViolation
func IsInvariant(err error) bool {
	var target *InvariantViolation
	return errors.As(err, &target)
}
