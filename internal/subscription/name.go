package subscription

import (
	"errors"
	"strings"

	"github.com/rivo/uniseg"
)

// maxNameGraphemes limits names to 256 grapheme clusters. We count
// graphemes instead of bytes or runes so that names in any script get
// the same visible length budget.
const maxNameGraphemes = 256

// forbiddenNameChars are rejected to keep names out of injection
// trouble when they end up in emails or rendered pages.
const forbiddenNameChars = `/(){}%"[]<>\`

var ErrInvalidName = errors.New("invalid subscriber name")

// Name is a validated subscriber display name.
type Name string

// ParseName validates the raw input and returns it as a Name.
func ParseName(raw string) (Name, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrInvalidName
	}

	if uniseg.GraphemeClusterCount(raw) > maxNameGraphemes {
		return "", ErrInvalidName
	}

	if strings.ContainsAny(raw, forbiddenNameChars) {
		return "", ErrInvalidName
	}

	return Name(raw), nil
}

func (n Name) String() string {
	return string(n)
}

func (n *Name) UnmarshalText(text []byte) error {
	name, err := ParseName(string(text))
	if err != nil {
		return err
	}

	*n = name

	return nil
}
