// Package stringtest provides helpers for building and normalizing expected
// text in tests.
package stringtest

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// JoinLF joins multiple strings with LF line endings.
// Use this to construct expected test output with explicit line endings.
//
// Example:
//
//	want := stringtest.JoinLF(
//		"line1",
//		"line2",
//		"line3",
//	) // -> "line1\nline2\nline3"
func JoinLF(ss ...string) string {
	return strings.Join(ss, "\n")
}

// JoinCRLF joins multiple strings with CRLF line endings, as written by
// serial consoles.
//
// Example:
//
//	want := stringtest.JoinCRLF(
//		"line1",
//		"line2",
//	) // -> "line1\r\nline2"
func JoinCRLF(ss ...string) string {
	return strings.Join(ss, "\r\n")
}

// StripANSI removes ANSI escape sequences from s, leaving only the visible
// text.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Lines splits s on LF or CRLF line endings and drops a single trailing
// empty element, so "a\nb\n" yields ["a", "b"].
func Lines(s string) []string {
	if s == "" {
		return nil
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")

	return strings.Split(s, "\n")
}
