package security

import (
	"errors"
	"testing"
	"time"
)

var tokenNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("", time.Hour, "registry"); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestTokenIssueVerify(t *testing.T) {
	manager, err := NewTokenManager("test-secret", time.Hour, "registry")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	token, err := manager.Issue("acc-1", "clerk", "editor", tokenNow)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := manager.Verify(token, tokenNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.AccountID != "acc-1" {
		t.Errorf("AccountID = %q, want acc-1", claims.AccountID)
	}
	if claims.Username != "clerk" || claims.Role != "editor" {
		t.Errorf("claims = %+v, want clerk/editor", claims)
	}
	if claims.Issuer != "registry" {
		t.Errorf("Issuer = %q, want registry", claims.Issuer)
	}
}

func TestTokenVerifyExpired(t *testing.T) {
	manager, err := NewTokenManager("test-secret", time.Hour, "registry")
	if err != nil {
		t.Fatal(err)
	}

	token, err := manager.Issue("acc-1", "clerk", "editor", tokenNow)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Verify(token, tokenNow.Add(2*time.Hour)); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
}

func TestTokenVerifyWrongSecret(t *testing.T) {
	issuer, err := NewTokenManager("secret-one", time.Hour, "registry")
	if err != nil {
		t.Fatal(err)
	}
	verifier, err := NewTokenManager("secret-two", time.Hour, "registry")
	if err != nil {
		t.Fatal(err)
	}

	token, err := issuer.Issue("acc-1", "clerk", "editor", tokenNow)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.Verify(token, tokenNow); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenVerifyGarbage(t *testing.T) {
	manager, err := NewTokenManager("test-secret", time.Hour, "registry")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Verify("definitely.not.ajwt", tokenNow); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
