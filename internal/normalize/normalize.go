package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	enc "github.com/MrJamesThe3rd/conciliador/internal/encoding"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

// Options describe where the rows come from.
type Options struct {
	ClientID    uuid.UUID
	AccountID   string
	StatementID *uuid.UUID
	Bank        statement.Bank
	Currency    string // CLP when empty
}

func (o Options) currency() string {
	if o.Currency == "" {
		return "CLP"
	}

	return o.Currency
}

type Result struct {
	Records    []transaction.CreateParams
	Skipped    []*RowError
	Duplicates int
}

// Normalize turns raw rows into transaction records. Rows that cannot be read are reported in
// Skipped and the rest carry on. Rows repeating an earlier dedup key are dropped.
func Normalize(opts Options, rows []statement.RawRow) Result {
	var res Result

	currency := opts.currency()
	format := FormatFor(opts.Bank, currency)
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		rec, rowErr := normalizeRow(opts, currency, format, row)
		if rowErr != nil {
			res.Skipped = append(res.Skipped, rowErr)
			continue
		}

		if _, dup := seen[rec.DedupKey]; dup {
			res.Duplicates++
			continue
		}

		seen[rec.DedupKey] = struct{}{}
		res.Records = append(res.Records, rec)
	}

	return res
}

func normalizeRow(opts Options, currency string, format NumberFormat, row statement.RawRow) (transaction.CreateParams, *RowError) {
	date, err := Date(row.Date)
	if err != nil {
		return transaction.CreateParams{}, &RowError{Line: row.Line, Field: "date", Value: row.Date, Err: err}
	}

	amount, err := Amount(row.Amount, format, currency)
	if err != nil {
		return transaction.CreateParams{}, &RowError{Line: row.Line, Field: "amount", Value: row.Amount, Err: err}
	}

	if amount == 0 {
		return transaction.CreateParams{}, &RowError{Line: row.Line, Field: "amount", Value: row.Amount, Err: fmt.Errorf("%w: zero movement", ErrBadAmount)}
	}

	folded := enc.Fold(row.Description)
	if folded == "" {
		return transaction.CreateParams{}, &RowError{Line: row.Line, Field: "description", Value: row.Description, Err: ErrEmpty}
	}

	return transaction.CreateParams{
		ClientID:              opts.ClientID,
		AccountID:             opts.AccountID,
		StatementID:           opts.StatementID,
		Date:                  date,
		Description:           row.Description,
		NormalizedDescription: folded,
		Amount:                amount,
		Currency:              currency,
		DedupKey:              DedupKey(opts.ClientID, opts.AccountID, date, amount, folded),
	}, nil
}

// DedupKey identifies a movement within a client's account across imports.
func DedupKey(clientID uuid.UUID, accountID string, date time.Time, amount int64, normalizedDescription string) string {
	sum := sha256.Sum256([]byte(normalizedDescription))

	return fmt.Sprintf("%s|%s|%s|%d|%s", clientID, accountID, date.Format("2006-01-02"), amount, hex.EncodeToString(sum[:])[:16])
}

// Balance reads a statement balance figure. Empty or unreadable values give nil.
func Balance(opts Options, s string) *int64 {
	if s == "" {
		return nil
	}

	currency := opts.currency()

	v, err := Amount(s, FormatFor(opts.Bank, currency), currency)
	if err != nil {
		return nil
	}

	return &v
}

// File is a statement file read and normalized in one go.
type File struct {
	Result
	OpeningBalance *int64
	ClosingBalance *int64
	// MovementsTotal is the signed sum of Records.
	MovementsTotal int64
}

// ParseFile parses r as a statement of opts.Bank and normalizes its rows. Only a file that
// cannot be read at all fails; bad rows end up in Skipped.
func ParseFile(opts Options, r io.Reader) (*File, error) {
	st, err := statement.Parse(opts.Bank, r)
	if err != nil {
		return nil, err
	}

	f := &File{
		Result:         Normalize(opts, st.Rows),
		OpeningBalance: Balance(opts, st.OpeningBalance),
		ClosingBalance: Balance(opts, st.ClosingBalance),
	}

	for _, rec := range f.Records {
		f.MovementsTotal += rec.Amount
	}

	return f, nil
}
