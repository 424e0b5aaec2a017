// Package rut parses and validates Chilean taxpayer identifiers (RUT).
package rut

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid rut")

// candidatePattern finds RUT-looking tokens inside free text such as
// "TRANSF A 76.123.456-0 PROVEEDOR" or "PAGO 761234560".
var candidatePattern = regexp.MustCompile(`\b(\d{1,2}\.?\d{3}\.?\d{3}-?[\dkK])\b`)

// Normalize returns the canonical "12345678-5" form of s after checking the verifier digit.
func Normalize(s string) (string, error) {
	clean := strings.ToUpper(strings.NewReplacer(".", "", "-", "", " ", "").Replace(strings.TrimSpace(s)))
	if len(clean) < 2 {
		return "", ErrInvalid
	}

	body, dv := clean[:len(clean)-1], clean[len(clean)-1]

	n, err := strconv.Atoi(body)
	if err != nil || n <= 0 {
		return "", ErrInvalid
	}

	if verifier(n) != dv {
		return "", ErrInvalid
	}

	return strconv.Itoa(n) + "-" + string(dv), nil
}

// Valid reports whether s is a well-formed RUT with a correct verifier digit.
func Valid(s string) bool {
	_, err := Normalize(s)
	return err == nil
}

// Find returns every valid RUT embedded in text, normalized, in order of appearance.
func Find(text string) []string {
	var found []string

	seen := make(map[string]struct{})

	for _, m := range candidatePattern.FindAllString(text, -1) {
		r, err := Normalize(m)
		if err != nil {
			continue
		}

		if _, dup := seen[r]; dup {
			continue
		}

		seen[r] = struct{}{}
		found = append(found, r)
	}

	return found
}

// verifier computes the modulo-11 check character.
func verifier(n int) byte {
	sum, factor := 0, 2

	for ; n > 0; n /= 10 {
		sum += (n % 10) * factor

		factor++
		if factor > 7 {
			factor = 2
		}
	}

	switch r := 11 - sum%11; r {
	case 11:
		return '0'
	case 10:
		return 'K'
	default:
		return byte('0' + r)
	}
}
