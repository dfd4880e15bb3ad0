package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("decide: %w", AlreadyResolved("r1"))
	if got := KindOf(err); got != KindAlreadyResolved {
		t.Errorf("KindOf = %q, want %q", got, KindAlreadyResolved)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain errors have no kind")
	}
}

func TestCollaboratorPreservesMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Collaborator(cause)
	if err.Error() != "connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	if !Retryable(err) {
		t.Error("collaborator failures are retryable")
	}
	if Collaborator(nil) != nil {
		t.Error("Collaborator(nil) should be nil")
	}
}

func TestRuleViolationsAreNotRetryable(t *testing.T) {
	for _, err := range []error{
		Validation("delta must be positive"),
		NotEligible("requester cannot decide"),
		AlreadyResolved("r1"),
	} {
		if Retryable(err) {
			t.Errorf("%v should not be retryable", err)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindValidation:       http.StatusBadRequest,
		KindNotEligible:      http.StatusForbidden,
		KindAlreadyResolved:  http.StatusConflict,
		KindToggleNotAllowed: http.StatusUnprocessableEntity,
		KindNotFound:         http.StatusNotFound,
		KindUnauthorized:     http.StatusUnauthorized,
		KindCollaborator:     http.StatusBadGateway,
		Kind("other"):        http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%q) = %d, want %d", kind, got, want)
		}
	}
}
