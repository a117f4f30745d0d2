package domain

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FoldCase lowercases recognizer output and vocabulary phrases the same way.
// Whitespace is left untouched.
func FoldCase(s string) string {
	return cases.Lower(language.Und).String(s)
}
