// Package handle validates and normalizes user-supplied X/Twitter handles.
//
// Validation is a pure function with no state or network access: trim
// whitespace, strip a single leading "@", then enforce the platform rules
// (non-empty, at most 15 characters, letters/digits/underscore only).
package handle

import (
	"errors"
	"strings"
)

// MaxLen is the maximum length of an X handle.
const MaxLen = 15

// Validation errors. The messages are user-facing and returned verbatim in
// analysis failures.
var (
	// ErrEmpty is returned when nothing remains after normalization.
	ErrEmpty = errors.New("please enter an X handle")

	// ErrTooLong is returned for handles longer than MaxLen characters.
	ErrTooLong = errors.New("X handles cannot be longer than 15 characters")

	// ErrInvalidChars is returned when the handle contains characters
	// outside letters, digits, and underscore.
	ErrInvalidChars = errors.New("X handles can only contain letters, numbers, and underscores")
)

// Clean normalizes a raw handle: surrounding whitespace is trimmed and one
// leading "@" is stripped. Case is preserved.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	return strings.TrimPrefix(s, "@")
}

// Validate normalizes raw and checks it against the handle rules. The
// cleaned value is returned even when err is non-nil so callers can echo it
// back to the user. The rules are applied in order: empty, length, charset.
func Validate(raw string) (clean string, err error) {
	clean = Clean(raw)

	if clean == "" {
		return clean, ErrEmpty
	}
	if len(clean) > MaxLen {
		return clean, ErrTooLong
	}
	for _, r := range clean {
		if !isHandleRune(r) {
			return clean, ErrInvalidChars
		}
	}
	return clean, nil
}

func isHandleRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	}
	return false
}
