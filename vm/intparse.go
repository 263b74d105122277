package vm

import (
	"errors"
	"math"
	"strings"
)

var (
	errIntSyntax = errors.New("invalid int literal")
	errIntRange  = errors.New("int literal out of range")
)

// parseIntLiteral parses s with the runtime's int() rules: surrounding
// whitespace, an optional sign, a base prefix (required to pick the base
// when base is 0, optional when it matches), and single underscores between
// digits. Values must fit in an int64 cell.
func parseIntLiteral(s string, base int) (int64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	prefixed := false
	if len(s) >= 2 && s[0] == '0' {
		var pb int
		switch s[1] {
		case 'x', 'X':
			pb = 16
		case 'o', 'O':
			pb = 8
		case 'b', 'B':
			pb = 2
		}
		if pb != 0 && (base == 0 || base == pb) {
			base = pb
			s = s[2:]
			prefixed = true
		}
	}
	leadingZeroCheck := false
	if base == 0 {
		base = 10
		leadingZeroCheck = true
	}

	if prefixed && strings.HasPrefix(s, "_") {
		s = s[1:]
	}
	if s == "" || s[0] == '_' || s[len(s)-1] == '_' || strings.Contains(s, "__") {
		return 0, errIntSyntax
	}

	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}

	var mag uint64
	nonZero := false
	overflow := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			continue
		}
		d := digitValue(c)
		if d < 0 || d >= base {
			return 0, errIntSyntax
		}
		if d != 0 {
			nonZero = true
		}
		if overflow {
			continue
		}
		if mag > (limit-uint64(d))/uint64(base) {
			overflow = true
			continue
		}
		mag = mag*uint64(base) + uint64(d)
	}

	// base 0 rejects decimal literals like "012", which would be ambiguous
	if leadingZeroCheck && s[0] == '0' && nonZero {
		return 0, errIntSyntax
	}
	if overflow {
		return 0, errIntRange
	}
	if neg {
		return int64(-mag), nil
	}
	return int64(mag), nil
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}
