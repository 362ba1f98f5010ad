// Package attr holds the ownership/permission policy applied to mirrored
// entries and the octal permission type shared by both backends.
package attr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Mode parsing limits.
const (
	octalBase      = 8
	minOctalDigits = 3
	maxOctalDigits = 4
	maxModeValue   = 0o7777
)

// ErrInvalidMode is returned by ParseMode for anything that is not a 3 or 4
// digit octal permission.
var ErrInvalidMode = errors.New("attr: mode must be in octal form")

// Mode is a POSIX permission value (the low 12 bits). The zero value is
// used throughout to mean "not configured" or "unknown".
type Mode uint32

// String renders the mode as a four character octal string with a leading
// zero, the form used in reports and in comparisons with remote values.
func (m Mode) String() string {
	return fmt.Sprintf("%04o", uint32(m))
}

// IsSet reports whether m carries a value.
func (m Mode) IsSet() bool {
	return m != 0
}

// ParseMode parses an octal permission such as "755", "0644" or "1777".
// An empty string yields the zero Mode.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	digits := strings.TrimPrefix(s, "0o")
	if len(digits) < minOctalDigits || len(digits) > maxOctalDigits {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}

	v, err := strconv.ParseUint(digits, octalBase, 32)
	if err != nil || v > maxModeValue {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}

	return Mode(v), nil
}
