// Package apperr defines the error kinds shared by the fairness core, the
// HTTP layer and the client.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error category. It travels over the wire as the
// "code" field of an error body.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotEligible      Kind = "not_eligible"
	KindAlreadyResolved  Kind = "already_resolved"
	KindToggleNotAllowed Kind = "toggle_not_allowed"
	KindCollaborator     Kind = "collaborator_failure"
	KindNotFound         Kind = "not_found"
	KindUnauthorized     Kind = "unauthorized"
)

// Error is a categorized error. Message is safe to show to users.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return newf(KindValidation, format, args...)
}

func NotEligible(format string, args ...any) error {
	return newf(KindNotEligible, format, args...)
}

func AlreadyResolved(requestID string) error {
	return newf(KindAlreadyResolved, "request %s is already resolved", requestID)
}

func ToggleNotAllowed(date fmt.Stringer) error {
	return newf(KindToggleNotAllowed, "tasks dated %s can no longer be toggled", date)
}

func NotFound(what, id string) error {
	return newf(KindNotFound, "%s %s not found", what, id)
}

func Unauthorized(format string, args ...any) error {
	return newf(KindUnauthorized, format, args...)
}

// Collaborator wraps a failed persistence call. The underlying message is
// preserved.
func Collaborator(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindCollaborator, Err: err}
}

// FromWire rebuilds an error from a server error body.
func FromWire(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the caller may retry the operation unchanged.
// Only collaborator failures qualify; rule violations never do.
func Retryable(err error) bool {
	return Is(err, KindCollaborator)
}

// HTTPStatus maps a kind to the status code the server responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotEligible:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyResolved:
		return http.StatusConflict
	case KindToggleNotAllowed:
		return http.StatusUnprocessableEntity
	case KindCollaborator:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
