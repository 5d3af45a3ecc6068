package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("order %d not found", 42), http.StatusNotFound},
		{"invalid argument", InvalidArgument("quantity must be at least 1"), http.StatusBadRequest},
		{"invalid state", InvalidState("cart is empty"), http.StatusBadRequest},
		{"forbidden", Forbidden("not your order"), http.StatusForbidden},
		{"unauthorized", Unauthorized("invalid token"), http.StatusUnauthorized},
		{"conflict", Conflict("email already registered"), http.StatusConflict},
		{"internal", Internal(errors.New("boom"), "query failed"), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("checkout: %w", NotFound("cart not found")), http.StatusNotFound},
		{"nil kind default", nil, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTTPStatus(tc.err); got != tc.want {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "database unavailable")

	if !errors.Is(err, cause) {
		t.Error("expected Internal error to wrap its cause")
	}
	if km := KindOf(err); km != KindInternal {
		t.Errorf("KindOf = %v, want KindInternal", km)
	}
}

func TestErrorMessage(t *testing.T) {
	err := NotFound("product %d not found", 7)
	if err.Error() != "product 7 not found" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	wrapped := Internal(errors.New("boom"), "query failed")
	if wrapped.Error() != "query failed: boom" {
		t.Errorf("unexpected message: %q", wrapped.Error())
	}
}
