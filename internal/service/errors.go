package service

import (
	"errors"
	"fmt"
)

// ErrNotFound matches any NotFoundError with errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError reports that an operation needed an entity that does not exist.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(kind string, id int64) error {
	return &NotFoundError{Kind: kind, ID: id}
}
