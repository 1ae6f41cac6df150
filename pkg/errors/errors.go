package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details any    `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound            = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation          = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrUnknownFormType     = New("UNKNOWN_FORM_TYPE", http.StatusNotFound, "unknown form type")
	ErrDraftNotFound       = New("DRAFT_NOT_FOUND", http.StatusNotFound, "no saved draft")
	ErrSubmissionInFlight  = New("SUBMISSION_IN_PROGRESS", http.StatusConflict, "a submission is already in progress")
	ErrArtifactGeneration  = New("ARTIFACT_GENERATION_FAILED", http.StatusInternalServerError, "could not generate the request documents")
	ErrSubmissionRejected  = New("SUBMISSION_REJECTED", http.StatusUnprocessableEntity, "the request was rejected")
	ErrSubmissionExhausted = New("SUBMISSION_FAILED", http.StatusBadGateway, "the request could not be submitted")
	ErrArtifactNotFound    = New("ARTIFACT_NOT_FOUND", http.StatusNotFound, "artifact not found")
	ErrLinkExpired         = New("LINK_EXPIRED", http.StatusGone, "download link has expired")
	ErrInternal            = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy carrying structured details for the response body.
func WithDetails(err *Error, details any) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Details = details
	return &clone
}
