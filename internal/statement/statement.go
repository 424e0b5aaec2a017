package statement

import (
	"time"

	"github.com/google/uuid"
)

// Bank identifies a statement export format.
type Bank string

const (
	BankEstado    Bank = "bancoestado"
	BankChile     Bank = "bancochile"
	BankSantander Bank = "santander"
	BankBCI       Bank = "bci"
	BankGeneric   Bank = "generic"
)

// Banks lists the supported formats in a stable order.
func Banks() []Bank {
	return []Bank{BankEstado, BankChile, BankSantander, BankBCI, BankGeneric}
}

func (b Bank) Valid() bool {
	switch b {
	case BankEstado, BankChile, BankSantander, BankBCI, BankGeneric:
		return true
	}

	return false
}

// IsPDF reports whether the bank exports its statements as PDF.
func (b Bank) IsPDF() bool {
	return b == BankSantander || b == BankBCI
}

// RawRow is one movement as read from the file, before any interpretation.
// Amount is signed: debits carry a leading '-'.
type RawRow struct {
	Line        int
	Date        string
	Description string
	Amount      string
	Balance     string
}

// Statement is the parsed content of one file.
type Statement struct {
	Bank           Bank
	Rows           []RawRow
	OpeningBalance string
	ClosingBalance string
}

type UploadStatus string

const (
	UploadPending  UploadStatus = "pending"
	UploadImported UploadStatus = "imported"
	UploadFailed   UploadStatus = "failed"
)

// Upload is a statement file stored for the import step.
type Upload struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	AccountID      string
	Bank           Bank
	Filename       string
	Content        []byte
	Status         UploadStatus
	Error          string
	OpeningBalance *int64
	ClosingBalance *int64
	// MovementsTotal is the signed sum of the rows the import read from the file.
	MovementsTotal *int64
	CreatedAt      time.Time
}

// ImportStats is what the import step learned from a statement file.
type ImportStats struct {
	OpeningBalance *int64
	ClosingBalance *int64
	MovementsTotal int64
}

// Reconciles reports whether opening plus movements equals closing. Statements that
// do not print both balances cannot be checked and report true.
func (u *Upload) Reconciles() bool {
	if u.OpeningBalance == nil || u.ClosingBalance == nil || u.MovementsTotal == nil {
		return true
	}

	return *u.OpeningBalance+*u.MovementsTotal == *u.ClosingBalance
}
