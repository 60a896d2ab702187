package schema

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeTypeName trims name and upper-cases its first letter, so "user"
// and "User" register and resolve as the same model type.
func NormalizeTypeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return cases.Title(language.Und, cases.NoLower).String(string(r)) + name[size:]
}

// NewID returns a time-ordered UUID (v7) string for use as a primary key.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
