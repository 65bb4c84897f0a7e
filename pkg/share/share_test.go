package share

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfig_IssueAndVerify(t *testing.T) {
	cfg := Config{Secret: "topsecret"}

	token, err := cfg.Issue("form-1", ScopeRespond)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	grant, err := cfg.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if grant.FormID != "form-1" {
		t.Fatalf("form id mismatch: %s", grant.FormID)
	}
	if grant.Scope != ScopeRespond {
		t.Fatalf("scope mismatch: %s", grant.Scope)
	}
	if grant.ExpiresAt.IsZero() {
		t.Fatalf("expected expiry on grant")
	}
}

func TestConfig_VerifyRejectsWrongSecret(t *testing.T) {
	token, err := Config{Secret: "one"}.Issue("form-1", ScopePreview)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = Config{Secret: "two"}.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestConfig_VerifyRejectsExpired(t *testing.T) {
	past := func() time.Time { return time.Now().Add(-48 * time.Hour) }
	cfg := Config{Secret: "topsecret", TTL: time.Hour, Now: past}

	token, err := cfg.Issue("form-1", ScopeRespond)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = Config{Secret: "topsecret"}.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestConfig_IssueRequiresSecret(t *testing.T) {
	_, err := Config{}.Issue("form-1", ScopeRespond)
	if !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestConfig_IssueRejectsUnknownScope(t *testing.T) {
	_, err := Config{Secret: "s"}.Issue("form-1", "admin")
	if err == nil {
		t.Fatalf("expected scope error")
	}
}

func TestURLAndEmbed(t *testing.T) {
	got := URL("https://forms.example.com/", "tok")
	if got != "https://forms.example.com/f/tok" {
		t.Fatalf("unexpected url: %s", got)
	}

	snippet := EmbedSnippet("https://forms.example.com", "tok")
	if !strings.Contains(snippet, "https://forms.example.com/f/tok") {
		t.Fatalf("snippet missing url: %s", snippet)
	}
	if !strings.HasPrefix(snippet, "<iframe") {
		t.Fatalf("expected iframe markup: %s", snippet)
	}
}
