// Package alert records findings of a reconciliation run for delivery by an external notifier.
// Events are written to an outbox; nothing here sends email or chat messages.
package alert

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidEvent = errors.New("invalid alert event")

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Type string

const (
	TypeBalanceMismatch    Type = "balance_mismatch"
	TypeInvariantViolation Type = "invariant_violation"
	TypeImportFailed       Type = "import_failed"
	TypeLowConfidence      Type = "low_confidence_match"
	TypeUnmatched          Type = "unmatched_transaction"
)

type Event struct {
	ID            int64
	RunID         uuid.UUID
	Type          Type
	Severity      Severity
	TransactionID *uuid.UUID
	Message       string
	DedupKey      string
	CreatedAt     time.Time
	DispatchedAt  *time.Time
}

// Key identifies the finding so emitting it again from a re-run step is a no-op.
// The message is not part of it: wording may change between runs of the same finding.
func (e *Event) Key() string {
	if e.DedupKey != "" {
		return e.DedupKey
	}

	ref := ""
	if e.TransactionID != nil {
		ref = e.TransactionID.String()
	}

	sum := sha256.Sum256([]byte(e.RunID.String() + "|" + string(e.Type) + "|" + ref + "|" + e.subject()))

	return hex.EncodeToString(sum[:16])
}

// subject distinguishes run-level findings of the same type, which carry no transaction.
func (e *Event) subject() string {
	if e.TransactionID != nil {
		return ""
	}

	return e.Message
}

func (e *Event) Validate() error {
	switch {
	case e.RunID == uuid.Nil:
		return fmt.Errorf("%w: missing run", ErrInvalidEvent)
	case e.Type == "":
		return fmt.Errorf("%w: missing type", ErrInvalidEvent)
	case e.Message == "":
		return fmt.Errorf("%w: missing message", ErrInvalidEvent)
	}

	switch e.Severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return nil
	}

	return fmt.Errorf("%w: unknown severity %q", ErrInvalidEvent, e.Severity)
}
