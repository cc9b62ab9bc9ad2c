package validation

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether s has the local@domain.tld shape.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidateEmail returns the format message for a non-empty malformed address.
func ValidateEmail(s string) string {
	if s != "" && !IsValidEmail(s) {
		return MsgEmailFormat
	}
	return ""
}

// digits keeps only ASCII digits of s, truncated to max when max > 0.
func digits(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// FormatPhoneNumber groups the digits of s as the user types.
// Up to ten digits group 3-3-4; eleven group 3-4-4 and input stops there.
func FormatPhoneNumber(s string) string {
	n := digits(s, 11)
	switch {
	case len(n) <= 3:
		return n
	case len(n) <= 6:
		return n[:3] + "-" + n[3:]
	case len(n) <= 10:
		return n[:3] + "-" + n[3:6] + "-" + n[6:]
	default:
		return n[:3] + "-" + n[3:7] + "-" + n[7:]
	}
}

// FormatDate inserts dashes after the year and month digits: YYYY-MM-DD.
func FormatDate(s string) string {
	n := digits(s, 8)
	switch {
	case len(n) <= 4:
		return n
	case len(n) <= 6:
		return n[:4] + "-" + n[4:]
	default:
		return n[:4] + "-" + n[4:6] + "-" + n[6:]
	}
}

// FormatYearMonth inserts a dot after the year digits: YYYY.MM.
func FormatYearMonth(s string) string {
	n := digits(s, 6)
	if len(n) <= 4 {
		return n
	}
	return n[:4] + "." + n[4:]
}
