package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns the key under which a participant name is indexed:
// NFC-normalized with surrounding and repeated inner whitespace collapsed.
// Case is preserved.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.Join(strings.Fields(name), " "))
}
