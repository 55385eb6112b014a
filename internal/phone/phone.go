// Package phone normalizes phone numbers to E.164 for storage and matching.
package phone

import "strings"

// Normalize converts a raw phone string to E.164. Bare 10-digit numbers are
// assumed to be US/Canada. Returns "" when no digits are present.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}

	switch {
	case len(d) == 10:
		return "+1" + d
	case len(d) == 11 && d[0] == '1':
		return "+" + d
	default:
		return "+" + d
	}
}

// Equal reports whether two raw numbers normalize to the same E.164 value.
// Matching is exact, never substring.
func Equal(a, b string) bool {
	na := Normalize(a)
	nb := Normalize(b)
	return na != "" && na == nb
}
