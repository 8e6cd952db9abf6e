// Package errs defines the error taxonomy shared by the service layer and
// both transport boundaries (REST and websocket). Validation and not-found
// failures are typed so the boundaries can map them to the right status
// without string matching.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports bad input, an authorization denial or an illegal
// state transition. Model and Field are optional tags identifying where the
// validation failed.
type ValidationError struct {
	Model   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation builds a ValidationError with just a message.
func NewValidation(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// NewFieldValidation builds a ValidationError tagged with a model and field.
func NewFieldValidation(model, field, message string) *ValidationError {
	return &ValidationError{Model: model, Field: field, Message: message}
}

// ForbiddenError reports an operation reserved for the wishlist admin.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// NewForbidden builds a ForbiddenError with the given message.
func NewForbidden(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFound builds a NotFoundError for the given entity and id.
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsForbidden reports whether err is (or wraps) a ForbiddenError.
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}
