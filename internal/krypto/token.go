package krypto

import (
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
)

const (
	// TokenLen is the length of a token in characters.
	TokenLen = 25

	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var ErrInvalidToken = errors.New("invalid token")

// Token is a random alphanumeric token used in confirmation links.
//
// The only time a token should be provided in plaintext is as part of
// the link sent to the subscriber. Tokens are confidential and should
// never be exposed in logs.
type Token string

// GenerateToken creates a new random token. Each character is drawn
// uniformly from the alphabet using crypto/rand, so a collision between
// two tokens is cryptographically negligible.
func GenerateToken() (Token, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))

	b := make([]byte, TokenLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tokenAlphabet[n.Int64()]
	}

	return Token(b), nil
}

// ParseToken parses a token from a string.
func ParseToken(raw string) (Token, error) {
	if len(raw) != TokenLen {
		return "", ErrInvalidToken
	}

	for _, c := range []byte(raw) {
		if !isAlphanumeric(c) {
			return "", ErrInvalidToken
		}
	}

	return Token(raw), nil
}

// String returns the string representation of the token.
// As opposed to a password this is allowed, we need to embed the
// token in confirmation links.
func (t Token) String() string {
	return string(t)
}

func (t *Token) UnmarshalText(text []byte) error {
	token, err := ParseToken(string(text))
	if err != nil {
		return err
	}

	*t = token

	return nil
}

// LogValue implements the slog.Valuer interface.
func (t Token) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
