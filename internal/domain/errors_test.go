package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ErrorString_NoCause(t *testing.T) {
	err := New(KindAuth, "invalid_credentials", "invalid email or password")

	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error string")
	}
}

func TestError_ErrorString_WithCause(t *testing.T) {
	root := errors.New("root cause")
	err := Wrap(KindInternal, "hash_failed", "hash failed", root)

	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is to match cause")
	}
}

func TestError_Unwrap(t *testing.T) {
	root := errors.New("root")
	err := Wrap(KindInternal, "internal_error", "internal", root)

	if errors.Unwrap(err) != root {
		t.Fatalf("unwrap did not return cause")
	}
}

func TestMissingField_AttachesMeta(t *testing.T) {
	err := ErrMissingField("email")

	if err.Code != "validation_failed" {
		t.Fatalf("unexpected code %q", err.Code)
	}
	if err.Meta["field"] != "email" || err.Meta["reason"] != "required" {
		t.Fatalf("unexpected meta value: %+v", err.Meta)
	}
}

func TestIs_MatchesCode(t *testing.T) {
	err := ErrInvalidCredentials()

	if !Is(err, "invalid_credentials") {
		t.Fatalf("expected code match")
	}
	if Is(err, "something_else") {
		t.Fatalf("unexpected code match")
	}
}

func TestIs_NonDomainError(t *testing.T) {
	err := errors.New("plain error")

	if Is(err, "invalid_credentials") {
		t.Fatalf("should not match non-domain error")
	}
}

func TestCodeOf_WrappedDomainError(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrAccountLocked())

	if got := CodeOf(err); got != "account_locked" {
		t.Fatalf("expected account_locked, got %q", got)
	}
	if got := CodeOf(errors.New("x")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}

func TestTaxonomy_KindsAndCodes(t *testing.T) {
	cases := []struct {
		err  *Error
		kind ErrKind
		code string
	}{
		{ErrEmailAlreadyExists(), KindConflict, "email_already_exists"},
		{ErrInvalidCredentials(), KindAuth, "invalid_credentials"},
		{ErrAccountLocked(), KindLocked, "account_locked"},
		{ErrVerificationPending("u1"), KindForbidden, "verification_pending"},
		{ErrInvalidOrExpiredCode(), KindValidation, "invalid_or_expired_code"},
		{ErrMissingToken(), KindAuth, "missing_token"},
		{ErrInvalidOrExpiredToken("expired"), KindAuth, "invalid_or_expired_token"},
		{ErrUserNotFound(), KindNotFound, "user_not_found"},
		{ErrForbidden(), KindForbidden, "forbidden"},
		{ErrNotOwner(), KindForbidden, "not_owner"},
		{ErrValidation("name", "max"), KindValidation, "validation_failed"},
	}

	for _, c := range cases {
		if c.err.Kind != c.kind || c.err.Code != c.code {
			t.Fatalf("unexpected error: %+v (want kind=%s code=%s)", c.err, c.kind, c.code)
		}
	}
}

func TestVerificationPending_CarriesUserID(t *testing.T) {
	err := ErrVerificationPending("u-42")
	if err.Meta["user_id"] != "u-42" {
		t.Fatalf("expected user_id meta, got %+v", err.Meta)
	}
}

func TestRateLimitedError(t *testing.T) {
	err := ErrRateLimited("login")
	if err.Kind != KindRateLimited {
		t.Fatalf("unexpected kind")
	}
	if err.Meta["scope"] != "login" {
		t.Fatalf("unexpected meta")
	}
}

func TestInfrastructureErrors(t *testing.T) {
	root := errors.New("boom")

	for _, err := range []*Error{ErrDBUnavailable(root), ErrBrokerUnavailable(root)} {
		if err.Kind != KindInfrastructure {
			t.Fatalf("unexpected kind %s", err.Kind)
		}
		if !errors.Is(err, root) {
			t.Fatalf("expected wrapped cause")
		}
	}
}
