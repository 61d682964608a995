package database

import "strings"

// NormalizeName is the comparison form of a customer name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// EscapeLike escapes LIKE wildcards so a user query matches literally.
// Use with ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
