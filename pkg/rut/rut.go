// Package rut normalizes and validates Chilean RUT identifiers (e.g. 12.345.678-5).
package rut

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid_rut")

// Normalize strips dots and spaces and returns the canonical "12345678-5" form.
// The check digit is validated with the modulo 11 algorithm.
func Normalize(raw string) (string, error) {
	cleaned := strings.ToUpper(strings.NewReplacer(".", "", " ", "", "-", "").Replace(strings.TrimSpace(raw)))
	if len(cleaned) < 2 {
		return "", ErrInvalid
	}
	body, dv := cleaned[:len(cleaned)-1], cleaned[len(cleaned)-1:]
	if len(body) > 9 {
		return "", ErrInvalid
	}
	number, err := strconv.Atoi(body)
	if err != nil || number <= 0 {
		return "", ErrInvalid
	}
	if CheckDigit(number) != dv {
		return "", ErrInvalid
	}
	return strconv.Itoa(number) + "-" + dv, nil
}

// CheckDigit computes the verification digit for the numeric part of a RUT.
func CheckDigit(number int) string {
	sum, factor := 0, 2
	for number > 0 {
		sum += (number % 10) * factor
		number /= 10
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch dv := 11 - sum%11; dv {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(dv)
	}
}

// Format renders a normalized RUT with thousands separators.
func Format(normalized string) string {
	parts := strings.SplitN(normalized, "-", 2)
	if len(parts) != 2 {
		return normalized
	}
	body := parts[0]
	var b strings.Builder
	for i, r := range body {
		if i > 0 && (len(body)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String() + "-" + parts[1]
}
