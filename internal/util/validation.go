package util

import "strconv"

// IsDigits reports whether s is a non-empty run of ASCII digits. Signs,
// spaces and decimal points are rejected.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseDigits parses a digits-only string into an int64.
func ParseDigits(s string) (int64, bool) {
	if !IsDigits(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParsePositiveID parses a digits-only identifier greater than zero.
func ParsePositiveID(s string) (int64, bool) {
	n, ok := ParseDigits(s)
	if !ok || n < 1 {
		return 0, false
	}
	return n, true
}
