// Package rgb parses the 0xRRGGBB color notation accepted on the command line.
package rgb

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	prefix    = "0x"
	formatLen = len(prefix) + 6
)

var ErrInvalidFormat = errors.New("invalid color format, use 0xRRGGBB")

// Color holds three 8-bit channel values.
type Color struct {
	R byte
	G byte
	B byte
}

// Parse decodes a color written as "0x" followed by exactly 6 hex digits.
func Parse(s string) (Color, error) {
	if len(s) != formatLen || s[:len(prefix)] != prefix {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	digits := s[len(prefix):]
	// ParseUint would accept underscores and a sign, so check digits first
	for i := 0; i < len(digits); i++ {
		if !isHex(digits[i]) {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
		}
	}
	v, err := strconv.ParseUint(digits, 16, 24)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return Color{
		R: byte(v >> 16),
		G: byte(v >> 8),
		B: byte(v),
	}, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) Color {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Color) String() string {
	return fmt.Sprintf("0x%02X%02X%02X", c.R, c.G, c.B)
}

func isHex(b byte) bool {
	switch {
	case b >= '0' && b <= '9':
		return true
	case b >= 'a' && b <= 'f':
		return true
	case b >= 'A' && b <= 'F':
		return true
	}
	return false
}
