package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	enc "github.com/MrJamesThe3rd/conciliador/internal/encoding"
)

// layout describes how a bank lays out its PDF movement table once reduced to text lines.
type layout struct {
	descWords []string // any of these next to "fecha" marks the table header
	stopWords []string // lines starting with these end a wrapped description
}

var layouts = map[Bank]layout{
	BankSantander: {
		descWords: []string{"descripcion"},
		stopWords: []string{"total", "pagina", "resumen", "informese"},
	},
	BankBCI: {
		descWords: []string{"detalle", "descripcion"},
		stopWords: []string{"total", "pagina", "subtotal", "banco de credito"},
	},
}

var (
	rowStart    = regexp.MustCompile(`^(\d{2}[/-]\d{2}(?:[/-]\d{2,4})?)\s+(.*)$`)
	numberToken = regexp.MustCompile(`^-?\$?-?\d[\d.]*(,\d+)?-?$`)
	fullDate    = regexp.MustCompile(`\d{2}[/-]\d{2}[/-](\d{4})`)
)

func (l layout) isHeader(folded string) bool {
	if !strings.HasPrefix(folded, "fecha") {
		return false
	}

	for _, w := range l.descWords {
		if strings.Contains(folded, w) {
			return true
		}
	}

	return false
}

func (l layout) stops(folded string) bool {
	for _, w := range l.stopWords {
		if strings.HasPrefix(folded, w) {
			return true
		}
	}

	return false
}

// ParseText reads a statement from its text lines, as extracted from a PDF.
// Rows start with a date and end with the amount and, when printed, the running balance.
// Lines that follow a row without starting a new one are merged into its description.
func ParseText(bank Bank, lines []string) (*Statement, error) {
	lay, ok := layouts[bank]
	if !ok {
		return nil, parseErr(UnsupportedFormat, bank, "no text layout for bank")
	}

	st := &Statement{Bank: bank}

	var (
		headerSeen bool
		year       string
	)

	cur := -1

	for i, raw := range lines {
		line := strings.TrimSpace(strings.ReplaceAll(raw, "$ ", "$"))

		folded := enc.Fold(line)
		if folded == "" {
			continue
		}

		switch {
		case lay.isHeader(folded):
			headerSeen = true
			cur = -1

			continue
		case hasLabel(folded, openingLabels):
			if st.OpeningBalance == "" {
				st.OpeningBalance = lastNumber(line)
			}

			cur = -1

			continue
		case hasLabel(folded, closingLabels):
			st.ClosingBalance = lastNumber(line)
			cur = -1

			continue
		}

		if !headerSeen {
			// Short dates in the table take their year from the statement period.
			if m := fullDate.FindAllStringSubmatch(line, -1); len(m) > 0 {
				year = m[len(m)-1][1]
			}

			continue
		}

		if m := rowStart.FindStringSubmatch(line); m != nil {
			st.Rows = append(st.Rows, textRow(i+1, m[1], m[2], year))
			cur = len(st.Rows) - 1

			continue
		}

		if lay.stops(folded) {
			cur = -1
			continue
		}

		if cur >= 0 {
			st.Rows[cur].Description = strings.TrimSpace(st.Rows[cur].Description + " " + line)
		}
	}

	if !headerSeen {
		return nil, parseErr(UnsupportedFormat, bank, "movement table header not found")
	}

	if len(st.Rows) == 0 {
		return nil, parseErr(EmptyStatement, bank, "no movements after table header")
	}

	inferSigns(st)

	return st, nil
}

func textRow(line int, date, rest, year string) RawRow {
	if len(date) == 5 && year != "" {
		date += "/" + year
	}

	fields := strings.Fields(rest)

	var nums []string

	for len(fields) > 0 && len(nums) < 2 && numberToken.MatchString(fields[len(fields)-1]) {
		nums = append([]string{fields[len(fields)-1]}, nums...)
		fields = fields[:len(fields)-1]
	}

	row := RawRow{
		Line:        line,
		Date:        date,
		Description: strings.Join(fields, " "),
	}

	switch len(nums) {
	case 2:
		row.Amount, row.Balance = nums[0], nums[1]
	case 1:
		row.Amount = nums[0]
	}

	return row
}

func lastNumber(line string) string {
	fields := strings.Fields(line)
	for i := len(fields) - 1; i >= 0; i-- {
		if numberToken.MatchString(fields[i]) {
			return fields[i]
		}
	}

	return ""
}

// inferSigns marks a movement as a debit when the running balance went down.
// Separate cargo/abono columns collapse into one token once the PDF is reduced to text.
func inferSigns(st *Statement) {
	prev, havePrev := parseNumber(st.OpeningBalance)

	for i := range st.Rows {
		row := &st.Rows[i]

		bal, ok := parseNumber(row.Balance)
		if !ok {
			continue
		}

		if havePrev && !strings.Contains(row.Amount, "-") && bal.LessThan(prev) {
			row.Amount = "-" + row.Amount
		}

		prev, havePrev = bal, true
	}
}

// parseNumber reads a Chilean-formatted figure ("$1.234.567", "50.000-", "1.234,5").
func parseNumber(s string) (decimal.Decimal, bool) {
	clean := strings.TrimSpace(strings.ReplaceAll(s, "$", ""))
	if clean == "" {
		return decimal.Zero, false
	}

	neg := strings.HasPrefix(clean, "-") || strings.HasSuffix(clean, "-")
	clean = strings.Trim(clean, "-")
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}

	if neg {
		d = d.Neg()
	}

	return d, true
}
