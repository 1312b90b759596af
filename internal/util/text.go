package util

import "strings"

// SanitizePostgresText drops NUL bytes and invalid UTF-8, which PostgreSQL
// text columns reject, and trims surrounding whitespace.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.TrimSpace(strings.ReplaceAll(sanitized, "\x00", ""))
}
