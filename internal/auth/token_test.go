package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	tokens, err := NewTokens(Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}

	id := Identity{UserID: "u-1", Email: "taro@example.com", Name: "Taro"}
	signed, err := tokens.Issue(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if *got != id {
		t.Fatalf("identity mismatch: got %+v want %+v", got, id)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer, _ := NewTokens(Config{Secret: "secret-a"})
	verifier, _ := NewTokens(Config{Secret: "secret-b"})

	signed, err := issuer.Issue(Identity{UserID: "u-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(signed); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	tokens, _ := NewTokens(Config{Secret: "test-secret", TokenTTL: time.Hour})

	past := time.Now().Add(-48 * time.Hour)
	tokens.nowFunc = func() time.Time { return past }
	signed, err := tokens.Issue(Identity{UserID: "u-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tokens.nowFunc = time.Now
	if _, err := tokens.Verify(signed); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	tokens, _ := NewTokens(Config{Secret: "test-secret"})
	if _, err := tokens.Verify("not-a-token"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	if _, err := NewTokens(Config{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
