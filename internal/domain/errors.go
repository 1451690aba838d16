package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("already exists")
	// ErrValidation indicates the caller supplied an unusable value.
	ErrValidation = errors.New("validation failed")
)

// NotFoundError names the entity type and key that could not be resolved.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s with id %q exists", e.Entity, e.Key)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound wraps err into a NotFoundError when it is a not-found error and
// returns any other error unchanged.
func NewNotFound(entity, key string, err error) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{Entity: entity, Key: key}
	}
	return err
}

// DesyncError reports that a movie references a comment the comment store no
// longer holds.
type DesyncError struct {
	MovieID   string
	CommentID string
	Err       error
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("movie %q references missing comment: %v", e.MovieID, e.Err)
}

func (e *DesyncError) Unwrap() error {
	return e.Err
}
