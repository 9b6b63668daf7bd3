package krypto_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/letterdrop/letterdrop/internal/krypto"
)

func Test_GenerateToken(t *testing.T) {
	t.Run("ok, fixed length alphanumeric", func(t *testing.T) {
		tok, err := krypto.GenerateToken()
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		if _, err := krypto.ParseToken(tok.String()); err != nil {
			t.Errorf("generated token does not parse: %v", err)
		}
	})

	t.Run("ok, no duplicates in a small sample", func(t *testing.T) {
		seen := make(map[krypto.Token]struct{})
		for i := 0; i < 100; i++ {
			tok, err := krypto.GenerateToken()
			if err != nil {
				t.Fatalf("failed to generate token: %v", err)
			}

			if _, ok := seen[tok]; ok {
				t.Fatalf("duplicate token generated: %s", tok.String())
			}
			seen[tok] = struct{}{}
		}
	})
}

func Test_ParseToken(t *testing.T) {
	failCases := map[string]string{
		"fail, empty":      "",
		"fail, too short":  "abc123",
		"fail, too long":   strings.Repeat("a", krypto.TokenLen+1),
		"fail, non-alnum":  strings.Repeat("a", krypto.TokenLen-1) + "!",
		"fail, whitespace": strings.Repeat("a", krypto.TokenLen-1) + " ",
	}

	for name, raw := range failCases {
		t.Run(name, func(t *testing.T) {
			_, err := krypto.ParseToken(raw)
			if !errors.Is(err, krypto.ErrInvalidToken) {
				t.Fatalf("expected %v, got %v (via errors.Is)", krypto.ErrInvalidToken, err)
			}
		})
	}

	t.Run("ok, round trip", func(t *testing.T) {
		tok := must(krypto.GenerateToken())
		got := must(krypto.ParseToken(tok.String()))
		if got != tok {
			t.Fatalf("got %s, want %s", got.String(), tok.String())
		}
	})
}

func Test_Token_LogValue(t *testing.T) {
	tok := must(krypto.GenerateToken())

	got := tok.LogValue().String()
	if got != krypto.SecretMarker {
		t.Fatalf("got %q, want %q", got, krypto.SecretMarker)
	}

	// %v and friends go through the string representation, the log
	// value is what protects structured logs.
	if !strings.Contains(fmt.Sprintf("%s", tok.LogValue()), krypto.SecretMarker) {
		t.Fatalf("expected log value to contain marker")
	}
}
