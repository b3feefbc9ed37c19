package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaskAccountNumber keeps the last four digits of an account number visible.
func MaskAccountNumber(number string) string {
	digits := make([]rune, 0, len(number))
	for _, r := range number {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) <= 4 {
		if strings.HasPrefix(number, "*") {
			return number
		}
		return "****" + string(digits)
	}
	return "****" + string(digits[len(digits)-4:])
}

// Initials returns up to two uppercase initials for an avatar placeholder.
func Initials(firstName, lastName string) string {
	var b strings.Builder
	for _, part := range []string{firstName, lastName} {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// DisplayName prefers the server's full name and falls back to the parts.
func DisplayName(fullName, firstName, lastName string) string {
	if s := strings.TrimSpace(fullName); s != "" {
		return s
	}
	return strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
}
