// Package clp formats Chilean peso amounts.
package clp

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.MustParse("es-CL"))

// Format renders 89250 as "$89.250".
func Format(amount int64) string {
	if amount < 0 {
		return "-$" + printer.Sprintf("%d", -amount)
	}
	return "$" + printer.Sprintf("%d", amount)
}
