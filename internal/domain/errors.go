// Package domain defines the core IR types, errors, and result events for
// the calculation-view migration engine.
package domain

import "fmt"

// StructuralError indicates the graph was left (or would be left) in an
// inconsistent state: an edge endpoint that does not exist, or a dangling
// adjacency entry after a deletion. It is treated as a programming defect
// and aborts the operation before the graph is corrupted.
type StructuralError struct {
	Message string
}

func (e *StructuralError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError indicates a referenced resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ErrStructural creates a StructuralError with a formatted message.
func ErrStructural(format string, args ...interface{}) *StructuralError {
	return &StructuralError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}
