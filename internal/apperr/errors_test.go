package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("appeal: submit: %w", Upload("evidence upload failed", cause))

	if !IsKind(err, KindUpload) {
		t.Fatalf("expected upload kind, got %q", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if Message(err) != "evidence upload failed" {
		t.Fatalf("unexpected message %q", Message(err))
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		Validation("bad"):                  http.StatusBadRequest,
		Unauthorized("no"):                 http.StatusUnauthorized,
		Forbidden("no"):                    http.StatusForbidden,
		NotFound("gone"):                   http.StatusNotFound,
		Generation("llm", nil):             http.StatusBadGateway,
		Ledger("ledger write failed", nil): http.StatusInternalServerError,
		errors.New("plain"):                http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := HTTPStatus(err); got != want {
			t.Fatalf("%v: expected %d, got %d", err, want, got)
		}
	}
}

func TestMessageHidesUnclassifiedErrors(t *testing.T) {
	if got := Message(errors.New("pq: secret detail")); got != "internal error" {
		t.Fatalf("expected generic message, got %q", got)
	}
	if got := Message(nil); got != "" {
		t.Fatalf("expected empty message for nil, got %q", got)
	}
}
