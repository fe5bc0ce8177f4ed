package fabric

import (
	"strconv"
	"strings"
)

// NormalizeWWN returns the comparison key of a WWPN/WWNN: lower-case with
// ':' and '-' separators removed. Identifiers are stored case-preserved and
// compared through this key.
func NormalizeWWN(id string) string {
	id = strings.TrimSpace(id)
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r == ':' || r == '-':
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SameWWN compares two identifiers case-insensitively, ignoring separators.
func SameWWN(a, b string) bool {
	return NormalizeWWN(a) == NormalizeWWN(b)
}

// ParseSpeed extracts the Gbps value of a speed string such as "32Gbps",
// "16Gb" or "8G". The second result is false when no digits are present.
func ParseSpeed(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}
