// Package numbering allocates human-readable invoice numbers, one sequence per
// document type.
package numbering

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/smallbiznis/kinesio/internal/invoice/domain"
)

const sequenceWidth = 6

// Prefix returns the document prefix. Credit and debit notes share "NC".
func Prefix(docType domain.DocumentType) string {
	switch docType {
	case domain.DocumentBoleta:
		return "B"
	case domain.DocumentFactura:
		return "F"
	default:
		return "NC"
	}
}

// Format renders "B-000042". Sequences above 999999 keep all their digits.
func Format(docType domain.DocumentType, seq int64) string {
	return fmt.Sprintf("%s-%0*d", Prefix(docType), sequenceWidth, seq)
}

// ParseSequence strips every non-digit and parses the rest; 0 when nothing parses.
func ParseSequence(number string) int64 {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return 0
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return value
}
