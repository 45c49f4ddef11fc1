package domain

import "net/http"

// ValidationError reports invalid input on create or patch.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StatusCode returns the HTTP status associated with the error.
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// NotFoundError reports an unknown task id on update or delete.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return "Task not found." }

// StatusCode returns the HTTP status associated with the error.
func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }
