package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLineSize bounds one control line. Commands are short; anything longer is
// a pasted file or a stuck writer.
const DefaultMaxLineSize = 1024

// EnvMaxLineSize overrides DefaultMaxLineSize.
const EnvMaxLineSize = "CUELINE_MAX_LINE_SIZE"

var (
	ErrLineTooLong = errors.New("control line too long")
	ErrInvalidUTF8 = errors.New("control line is not valid UTF-8")
)

// SanitizeInput prepares one control line for decoding. Terminal escape sequences
// (arrow keys pressed at the prompt, colour codes pasted from a log) are removed as a
// whole, then remaining control characters other than tab are dropped.
func SanitizeInput(line string) (string, error) {
	if limit := maxLineSize(); len(line) > limit {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrLineTooLong, len(line), limit)
	}
	if !utf8.ValidString(line) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(line, unsafeRune) < 0 {
		return line, nil
	}

	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); {
		if line[i] == 0x1b {
			i += escapeLen(line[i:])
			continue
		}
		r, size := utf8.DecodeRuneInString(line[i:])
		if !unsafeRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String(), nil
}

func unsafeRune(r rune) bool {
	return unicode.IsControl(r) && r != '\t'
}

// escapeLen returns the length of the escape sequence at the start of s: a CSI
// sequence runs to its final byte in 0x40..0x7e, anything else is ESC plus one byte.
func escapeLen(s string) int {
	if len(s) < 2 {
		return len(s)
	}
	if s[1] != '[' {
		return 2
	}
	for i := 2; i < len(s); i++ {
		if s[i] >= 0x40 && s[i] <= 0x7e {
			return i + 1
		}
	}
	return len(s)
}

func maxLineSize() int {
	if v := os.Getenv(EnvMaxLineSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxLineSize
}
