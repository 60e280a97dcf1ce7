package utils

import "strings"

// TrimOrEmpty normalizes user input without turning nil into "nil".
func TrimOrEmpty(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeSpace collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeShift lowercases and trims a shift name coming off the wire.
func NormalizeShift(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
