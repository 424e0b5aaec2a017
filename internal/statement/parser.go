package statement

import (
	"fmt"
	"io"
)

// Parse reads a statement file in the given bank's export format.
// It never touches storage; the same bytes always yield the same rows.
func Parse(bank Bank, r io.Reader) (*Statement, error) {
	switch bank {
	case BankEstado, BankChile, BankGeneric:
		return parseCSV(bank, r)
	case BankSantander, BankBCI:
		return parsePDF(bank, r)
	default:
		return nil, &ParseError{Kind: UnsupportedFormat, Bank: bank, Err: fmt.Errorf("unknown bank %q", string(bank))}
	}
}
