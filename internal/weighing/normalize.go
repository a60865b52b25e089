package weighing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeSupplier trims and collapses inner whitespace.
func NormalizeSupplier(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeProduct trims, collapses whitespace, composes to NFC and upper-cases,
// so "tomate  cherry" and "TOMATE CHERRY" share one knowledge entry.
func NormalizeProduct(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	if collapsed == "" {
		return ""
	}
	return cases.Upper(language.Und).String(norm.NFC.String(collapsed))
}
