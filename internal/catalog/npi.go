package catalog

import "strings"

// NormalizeNPI trims whitespace and left-pads all-digit values to the fixed
// 10-character width. Anything else (wrong length, non-digit characters) is
// returned as-is: the raw value is the row's identity in the source data, and
// detectors that need a well-formed NPI filter with ValidNPI instead.
func NormalizeNPI(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 10 {
		return s
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return s
		}
	}
	if len(s) < 10 {
		s = strings.Repeat("0", 10-len(s)) + s
	}
	return s
}

// ValidNPI reports whether s is a plausible NPI: exactly 10 digits, not all
// zeros. Applied by detectors that join on provider identity.
func ValidNPI(s string) bool {
	if len(s) != 10 {
		return false
	}
	nonZero := false
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		if s[i] != '0' {
			nonZero = true
		}
	}
	return nonZero
}
