package utils

import (
	"regexp"
	"unicode/utf8"
)

var (
	emailRegex = regexp.MustCompile(`^[^@ \t\r\n]+@[^@ \t\r\n]+\.[^@ \t\r\n]+$`)
	phoneRegex = regexp.MustCompile(`[\+]?[(]?[0-9]{3}[)]?[-\s\.]?[0-9]{3}[-\s\.]?[0-9]{4,6}`)
)

// ValidateEmail checks the local@domain.tld shape. Invalid contact data is
// dropped from upsert payloads rather than rejected.
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ExtractPhone pulls a plausible phone digit run out of free-form input.
// The second return is false when no usable run exists.
func ExtractPhone(phone string) (string, bool) {
	match := phoneRegex.FindString(phone)
	if match == "" {
		return "", false
	}
	return match, true
}

// TruncateUTF8 cuts value to at most byteLimit bytes without splitting a
// multi-byte character.
func TruncateUTF8(value string, byteLimit int) string {
	if byteLimit <= 0 || value == "" {
		return ""
	}
	if len(value) <= byteLimit {
		return value
	}

	cut := byteLimit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
