package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainErrorPassesThrough(t *testing.T) {
	orig := NewConflict("already assigned", map[string]any{"id": 7})
	mapped := ToDomainError(orig)
	if mapped.Code != "CONFLICT" || mapped.HTTPStatus != http.StatusConflict {
		t.Fatalf("mapped: %+v", mapped)
	}
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	mapped := ToDomainError(errors.New("boom"))
	if mapped.Code != "INTERNAL_ERROR" || mapped.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("mapped: %+v", mapped)
	}
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	mapped := ToDomainError(fmt.Errorf("loading case: %w", pgx.ErrNoRows))
	if mapped.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected 404 for no rows, got %d", mapped.HTTPStatus)
	}
}

func TestValidationErrorStatus(t *testing.T) {
	mapped := ToDomainError(NewValidationError("bad input", nil))
	if mapped.Code != "VALIDATION_FAILED" || mapped.HTTPStatus != http.StatusUnprocessableEntity {
		t.Fatalf("mapped: %+v", mapped)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	inner := errors.New("socket closed")
	wrapped := NewInternalError(inner)
	if !errors.Is(wrapped, inner) {
		t.Fatal("internal error must unwrap to the cause")
	}
}
