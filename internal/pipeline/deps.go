package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/alert"
	"github.com/MrJamesThe3rd/conciliador/internal/matching"
	"github.com/MrJamesThe3rd/conciliador/internal/rules"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

// The interfaces below are the parts of the domain services the steps use.

//go:generate mockgen -source=deps.go -destination=deps_mock.go -package=pipeline
type Statements interface {
	Pending(ctx context.Context, clientID uuid.UUID, accountID string) ([]*statement.Upload, error)
	List(ctx context.Context, filter statement.UploadFilter) ([]*statement.Upload, error)
	MarkImported(ctx context.Context, id uuid.UUID, stats statement.ImportStats) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type Transactions interface {
	ImportBatch(ctx context.Context, clientID uuid.UUID, accountID string, params []transaction.CreateParams) (*transaction.ImportResult, error)
	SupersedeDuplicates(ctx context.Context, filter transaction.ListFilter) (int, error)
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
	SetCategory(ctx context.Context, id uuid.UUID, category string) error
	SetMatchOutcome(ctx context.Context, id uuid.UUID, status transaction.Status) error
	AutoConfirm(ctx context.Context, id, documentID uuid.UUID, score float64) (*transaction.Transaction, error)
}

type Categorizer interface {
	Engine(ctx context.Context, clientID uuid.UUID) (*rules.Engine, error)
}

type Matcher interface {
	MatchTransaction(ctx context.Context, tx *transaction.Transaction) (*matching.Outcome, error)
	Candidates(ctx context.Context, transactionID uuid.UUID) ([]matching.Candidate, error)
}

type Emitter interface {
	Emit(ctx context.Context, events []alert.Event) (int, error)
}
