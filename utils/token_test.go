package utils

import (
	"encoding/base64"
	"testing"
)

func TestNewToken_URLSafeAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken failed: %v", err)
		}

		raw, err := base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			t.Fatalf("token %q is not URL-safe base64: %v", token, err)
		}
		if len(raw) != TokenBytes {
			t.Fatalf("expected %d bytes of entropy, got %d", TokenBytes, len(raw))
		}

		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestMaskString_ProductionMasking(t *testing.T) {
	orig := IsProduction
	defer func() { IsProduction = orig }()

	IsProduction = false
	if got := MaskString("mail ada@example.com"); got != "mail ada@example.com" {
		t.Fatalf("development logs must pass through, got %q", got)
	}

	IsProduction = true
	masked := MaskString("mail ada@example.com token aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if masked == "mail ada@example.com token aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatal("production logs must be masked")
	}
	if got := MaskEmail("ada@example.com"); got != "***@***.***" {
		t.Fatalf("unexpected masked email %q", got)
	}
	if got := MaskToken("short"); got != "***" {
		t.Fatalf("unexpected masked short token %q", got)
	}
	if got := MaskToken("0123456789abcdef"); got != "01234567..." {
		t.Fatalf("unexpected masked token %q", got)
	}
}
