package email_test

import (
	"errors"
	"testing"

	"github.com/letterdrop/letterdrop/internal/email"
)

func Test_ParseAddress(t *testing.T) {
	okCases := map[string]string{
		"ok, simple":            "info@example.com",
		"ok, subdomain":         "info@mail.example.com",
		"ok, plus addressing":   "info+tag@example.com",
		"ok, underscores":       "ursula_le_guin@gmail.com",
		"ok, surrounding space": " info@example.com ",
	}

	for name, raw := range okCases {
		t.Run(name, func(t *testing.T) {
			_, err := email.ParseAddress(raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	failCases := map[string]string{
		"fail, empty":         "",
		"fail, no at":         "info.example.com",
		"fail, no domain":     "info@",
		"fail, no local part": "@example.com",
		"fail, display name":  "Alice <alice@example.com>",
		"fail, comment":       "alice@example.com(comment)",
		"fail, multiple":      "alice@example.com, bob@example.com",
		"fail, inner space":   "alice smith@example.com",
		"fail, just text":     "definitely-not-an-email",
	}

	for name, raw := range failCases {
		t.Run(name, func(t *testing.T) {
			_, err := email.ParseAddress(raw)
			if !errors.Is(err, email.ErrInvalidEmail) {
				t.Fatalf("expected %v, got %v (via errors.Is)", email.ErrInvalidEmail, err)
			}
		})
	}
}
