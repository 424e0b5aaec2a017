package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strings"

	enc "github.com/MrJamesThe3rd/conciliador/internal/encoding"
)

// dateLike marks a data row as a movement even when its amount cells are blank.
var dateLike = regexp.MustCompile(`^\d{1,4}[/-]\d{1,2}[/-]\d{2,4}$`)

type record struct {
	line  int
	cells []string
}

func parseCSV(bank Bank, r io.Reader) (*Statement, error) {
	candidates := profilesFor(bank)
	if len(candidates) == 0 {
		return nil, parseErr(UnsupportedFormat, bank, "no csv profile for bank")
	}

	utf8r, _, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, &ParseError{Kind: CorruptFile, Bank: bank, Err: err}
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, &ParseError{Kind: CorruptFile, Bank: bank, Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, parseErr(EmptyStatement, bank, "file is empty")
	}

	comma := candidates[0].Comma
	if comma == 0 {
		comma = sniffComma(data)
	}

	records, err := readRecords(data, comma)
	if err != nil {
		return nil, &ParseError{Kind: CorruptFile, Bank: bank, Err: err}
	}

	profile, cols, headerIdx := detectProfile(records, candidates)
	if profile == nil {
		return nil, parseErr(UnsupportedFormat, bank, "no header matching a %s export", bank)
	}

	st := &Statement{Bank: bank}
	scanBalances(st, records[:headerIdx])

	for _, rec := range records[headerIdx+1:] {
		row, ok := profile.rowFrom(cols, rec)
		if !ok {
			scanBalances(st, []record{rec})
			continue
		}

		st.Rows = append(st.Rows, row)
	}

	if len(st.Rows) == 0 {
		return nil, parseErr(EmptyStatement, bank, "header found on line %d but no movements", records[headerIdx].line)
	}

	return st, nil
}

func readRecords(data []byte, comma rune) ([]record, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var out []record

	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		line, _ := reader.FieldPos(0)
		out = append(out, record{line: line, cells: cells})
	}

	return out, nil
}

// sniffComma picks ';' or ',' from the first lines of the file.
func sniffComma(data []byte) rune {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}

	if bytes.Count(head, []byte{';'}) > bytes.Count(head, []byte{','}) {
		return ';'
	}

	return ','
}

// colIndex maps folded column names to their index in the row.
type colIndex map[string]int

// detectProfile scans rows for a header that matches one of the candidate profiles.
// Returns the matched profile, column index map, and header row index.
func detectProfile(rows []record, candidates []Profile) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row.cells {
			name := enc.Fold(cell)
			if name != "" {
				cols[name] = i
			}
		}

		for i := range candidates {
			if matchesProfile(&candidates[i], cols) {
				return &candidates[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// rowFrom extracts a movement from a data row. Labelled rows such as "Saldo final" and blank
// rows are not movements. A row with figures and an unreadable date is still returned so the
// normalizer reports it.
func (p *Profile) rowFrom(cols colIndex, rec record) (RawRow, bool) {
	date := cellValue(rec.cells, cols[p.DateCol])

	row := RawRow{
		Line:        rec.line,
		Date:        date,
		Description: cellValue(rec.cells, cols[p.DescCol]),
	}

	if idx, ok := cols[p.BalanceCol]; ok && p.BalanceCol != "" {
		row.Balance = cellValue(rec.cells, idx)
	}

	switch p.AmountMode {
	case amountSingle:
		row.Amount = cellValue(rec.cells, cols[p.AmountCol])
	case amountSplit:
		row.Amount = splitAmount(cellValue(rec.cells, cols[p.DebitCol]), cellValue(rec.cells, cols[p.CreditCol]))
	}

	if dateLike.MatchString(date) {
		return row, true
	}

	if !strings.ContainsAny(date, "0123456789") || row.Amount == "" {
		return RawRow{}, false
	}

	return row, true
}

// splitAmount folds separate debit/credit cells into one signed amount string.
func splitAmount(debit, credit string) string {
	if !isZero(debit) {
		return "-" + strings.TrimLeft(debit, "-")
	}

	if !isZero(credit) {
		return credit
	}

	return ""
}

func isZero(s string) bool {
	for _, r := range s {
		if r >= '1' && r <= '9' {
			return false
		}
	}

	return true
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

var (
	openingLabels = []string{"saldo inicial", "saldo anterior"}
	closingLabels = []string{"saldo final", "saldo al cierre"}
)

// scanBalances picks opening and closing balances from metadata rows such as
// "Saldo inicial;1.250.000".
func scanBalances(st *Statement, rows []record) {
	for _, rec := range rows {
		for i, cell := range rec.cells {
			label := enc.Fold(cell)

			if hasLabel(label, openingLabels) && st.OpeningBalance == "" {
				st.OpeningBalance = labelValue(cell, rec.cells[i+1:])
			}

			if hasLabel(label, closingLabels) && st.ClosingBalance == "" {
				st.ClosingBalance = labelValue(cell, rec.cells[i+1:])
			}
		}
	}
}

func hasLabel(folded string, labels []string) bool {
	for _, l := range labels {
		if strings.HasPrefix(folded, l) {
			return true
		}
	}

	return false
}

// labelValue returns the text after a ':' in the label cell, or the next non-empty cell.
func labelValue(cell string, rest []string) string {
	if _, after, ok := strings.Cut(cell, ":"); ok && strings.TrimSpace(after) != "" {
		return strings.TrimSpace(after)
	}

	for _, c := range rest {
		if v := strings.TrimSpace(c); v != "" {
			return v
		}
	}

	return ""
}
