package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/conciliador/internal/statement"
)

// NumberFormat is how a bank prints figures.
type NumberFormat int

const (
	// FormatChilean uses '.' for thousands and ',' for decimals: "1.234.567" or "1.234,56".
	FormatChilean NumberFormat = iota
	// FormatUS uses ',' for thousands and '.' for decimals: "1,234.56".
	FormatUS
	// FormatAuto guesses per value from the position of the separators.
	FormatAuto
)

// exponents are ISO 4217 minor-unit exponents. UF is kept in hundredths.
var exponents = map[string]int32{
	"CLP": 0,
	"USD": 2,
	"EUR": 2,
	"UF":  2,
	"CLF": 2,
}

func Exponent(currency string) (int32, bool) {
	exp, ok := exponents[strings.ToUpper(currency)]
	return exp, ok
}

// FormatFor returns the number format of a bank's exports in the given currency.
func FormatFor(bank statement.Bank, currency string) NumberFormat {
	switch {
	case strings.EqualFold(currency, "USD"):
		return FormatUS
	case bank == statement.BankGeneric:
		return FormatAuto
	default:
		return FormatChilean
	}
}

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	symbols  = strings.NewReplacer("US$", "", "USD", "", "CLP", "", "UF", "", "$", "", " ", "", "\u00a0", "", "+", "")
	digits   = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// Amount converts a printed figure into signed minor units of currency.
// A leading or trailing '-' or surrounding parentheses mark a negative value.
func Amount(s string, format NumberFormat, currency string) (int64, error) {
	exp, ok := Exponent(currency)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}

	clean := symbols.Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, ErrEmpty
	}

	neg := false

	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		neg = true
		clean = clean[1 : len(clean)-1]
	}

	if strings.HasPrefix(clean, "-") || strings.HasSuffix(clean, "-") {
		neg = true
		clean = strings.Trim(clean, "-")
	}

	clean = canonical(clean, format)
	if !digits.MatchString(clean) {
		return 0, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadAmount, err)
	}

	minor := d.Shift(exp)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q has more decimals than %s allows", ErrBadAmount, s, currency)
	}

	if minor.GreaterThan(maxMinor) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrBadAmount, s)
	}

	if neg {
		minor = minor.Neg()
	}

	return minor.IntPart(), nil
}

// canonical rewrites a figure with '.' as the only (decimal) separator.
func canonical(s string, format NumberFormat) string {
	if format == FormatAuto {
		format = guessFormat(s)
	}

	switch format {
	case FormatUS:
		return strings.ReplaceAll(s, ",", "")
	default:
		s = strings.ReplaceAll(s, ".", "")
		return strings.ReplaceAll(s, ",", ".")
	}
}

func guessFormat(s string) NumberFormat {
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")

	switch {
	case dot >= 0 && comma >= 0:
		if dot > comma {
			return FormatUS
		}

		return FormatChilean
	case comma >= 0:
		// "1,234" reads as thousands, "12,5" as decimals.
		if strings.Count(s, ",") == 1 && len(s)-comma-1 != 3 {
			return FormatChilean
		}

		return FormatUS
	case dot >= 0:
		if strings.Count(s, ".") == 1 && len(s)-dot-1 != 3 {
			return FormatUS
		}

		return FormatChilean
	}

	return FormatChilean
}

// Display prints minor units the Chilean way: "-1.250.000" for CLP, "1.234,56" for USD.
func Display(amount int64, currency string) string {
	exp, ok := Exponent(currency)
	if !ok {
		exp = 0
	}

	fixed := decimal.New(amount, -exp).Abs().StringFixed(exp)

	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder

	if amount < 0 {
		b.WriteByte('-')
	}

	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}

		b.WriteRune(r)
	}

	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}

	return b.String()
}
