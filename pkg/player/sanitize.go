package player

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxAnswerSize is the byte limit for a text answer.
const DefaultMaxAnswerSize = 4096

var (
	ErrAnswerTooLarge = errors.New("answer exceeds maximum allowed size")
	ErrInvalidUTF8    = errors.New("answer contains invalid UTF-8 sequences")
)

// SanitizeAnswer enforces the size limit, validates UTF-8 and strips control
// characters other than newline, tab and carriage return from a text answer.
// Oversized answers are rejected rather than truncated.
func SanitizeAnswer(input string, limit int) (string, error) {
	if limit > 0 && len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrAnswerTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
