package auth

import (
	"encoding/base64"
	"strconv"
	"testing"
)

func TestCryptoSecrets_VerificationCode_Range(t *testing.T) {
	t.Parallel()

	g := cryptoSecrets{}
	for i := 0; i < 500; i++ {
		code, err := g.VerificationCode()
		if err != nil {
			t.Fatalf("code: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil || n < codeMin || n > codeMax {
			t.Fatalf("code out of range: %q", code)
		}
	}
}

func TestCryptoSecrets_RefreshToken(t *testing.T) {
	t.Parallel()

	g := cryptoSecrets{}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := g.RefreshToken()
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil || len(raw) != 32 {
			t.Fatalf("expected 32 url-safe bytes, got %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token")
		}
		seen[tok] = true
	}
}

func TestNewOpaqueToken_InvalidLength(t *testing.T) {
	t.Parallel()

	if _, err := newOpaqueToken(0); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDomainCode(t *testing.T) {
	t.Parallel()

	if got := domainCode(nil); got != "" {
		t.Fatalf("expected empty for nil, got %q", got)
	}
	if got := domainCode(strconvErr()); got != "non_domain_error" {
		t.Fatalf("expected non_domain_error, got %q", got)
	}
}

func strconvErr() error {
	_, err := strconv.Atoi("x")
	return err
}

func TestRequireAtLeast(t *testing.T) {
	t.Parallel()

	if err := requireAtLeast("Administrator", "Moderator"); err != nil {
		t.Fatalf("admin should pass: %v", err)
	}
	requireDomainCode(t, requireAtLeast("User", "Moderator"), "insufficient_role")
	requireDomainCode(t, requireAtLeast("admin", "User"), "forbidden")
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	if got := normalizeEmail("  Foo@Bar.COM "); got != "foo@bar.com" {
		t.Fatalf("got %q", got)
	}
}
