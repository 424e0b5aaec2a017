package transaction

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction is derived from the sign of the amount.
type Direction string

const (
	DirectionCargo Direction = "cargo" // debit, money leaving the account
	DirectionAbono Direction = "abono" // credit, money entering the account
)

// DirectionOf returns the direction for a signed amount. Zero counts as abono.
func DirectionOf(amount int64) Direction {
	if amount < 0 {
		return DirectionCargo
	}

	return DirectionAbono
}

func (d Direction) Valid() bool {
	return d == DirectionCargo || d == DirectionAbono
}

// Status is the reconciliation state of a bank movement.
type Status string

const (
	StatusPending   Status = "pending"
	StatusMatched   Status = "matched"
	StatusPartial   Status = "partial"
	StatusUnmatched Status = "unmatched"
	StatusManual    Status = "manual"
)

// Linked reports whether the status requires a confirmed document.
func (s Status) Linked() bool {
	return s == StatusMatched || s == StatusManual
}

// AwaitingReview reports whether a human still has to decide on the movement.
func (s Status) AwaitingReview() bool {
	return s == StatusPending || s == StatusPartial
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusMatched, StatusPartial, StatusUnmatched, StatusManual:
		return true
	}

	return false
}

// Transaction is one normalized bank movement.
type Transaction struct {
	ID                    uuid.UUID
	ClientID              uuid.UUID
	AccountID             string
	StatementID           *uuid.UUID
	Date                  time.Time
	Description           string
	NormalizedDescription string
	Amount                int64 // signed, minor currency units
	Currency              string
	Category              *string
	Status                Status
	DocumentID            *uuid.UUID
	DedupKey              string
	SupersededBy          *uuid.UUID
	CreatedAt             time.Time
	UpdatedAt             *time.Time
}

func (t *Transaction) Direction() Direction {
	return DirectionOf(t.Amount)
}

// AbsAmount is the unsigned amount in minor units.
func (t *Transaction) AbsAmount() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}

	return t.Amount
}

// Validate checks the status/document-link invariant.
func (t *Transaction) Validate() error {
	if !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, t.Status)
	}

	if t.Status.Linked() != (t.DocumentID != nil) {
		return fmt.Errorf("%w: status %s with document link %v", ErrInvalidStatus, t.Status, t.DocumentID != nil)
	}

	return nil
}

// NoteAction labels an audit note.
type NoteAction string

const (
	NoteConfirmed NoteAction = "confirmed"
	NoteRejected  NoteAction = "rejected"
	NoteUnlinked  NoteAction = "unlinked"
	NoteAutoMatch NoteAction = "auto_matched"
)

// Note is an append-only audit entry attached to a transaction.
type Note struct {
	ID            int64
	TransactionID uuid.UUID
	Action        NoteAction
	DocumentID    *uuid.UUID
	Text          string
	CreatedAt     time.Time
}
