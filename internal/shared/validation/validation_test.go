package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Email string `validate:"required,email"`
	Note  string `validate:"max=5"`
}

func TestStructReportsViolations(t *testing.T) {
	err := Struct(sample{Email: "not-an-email", Note: "too long"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var serr *StructError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *StructError, got %T", err)
	}
	if len(serr.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(serr.Violations))
	}
	if !strings.Contains(serr.Error(), "Email") {
		t.Fatalf("expected field name in message, got %q", serr.Error())
	}
}

func TestStructAcceptsValid(t *testing.T) {
	if err := Struct(sample{Email: "ana@example.com", Note: "ok"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
