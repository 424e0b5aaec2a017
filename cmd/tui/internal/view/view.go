package view

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/alert"
	"github.com/MrJamesThe3rd/conciliador/internal/document"
	"github.com/MrJamesThe3rd/conciliador/internal/export"
	"github.com/MrJamesThe3rd/conciliador/internal/matching"
	"github.com/MrJamesThe3rd/conciliador/internal/pipeline"
	"github.com/MrJamesThe3rd/conciliador/internal/rules"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

// CommonModel is embedded by all views.
type CommonModel struct{}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

type Runs interface {
	Start(ctx context.Context, p pipeline.StartParams) (*pipeline.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*pipeline.Run, error)
	List(ctx context.Context, filter pipeline.ListFilter) ([]*pipeline.Run, error)
	Execute(ctx context.Context, id uuid.UUID) error
	RequestPause(ctx context.Context, id uuid.UUID) error
	Resume(ctx context.Context, id uuid.UUID) (*pipeline.Run, error)
	Retry(ctx context.Context, id uuid.UUID) (*pipeline.Run, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

type Transactions interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
	Summary(ctx context.Context, filter transaction.ListFilter) (transaction.Summary, error)
	Confirm(ctx context.Context, p transaction.ConfirmParams) (*transaction.Transaction, error)
	Reject(ctx context.Context, p transaction.RejectParams) error
	SetCategory(ctx context.Context, id uuid.UUID, category string) error
}

type Candidates interface {
	Candidates(ctx context.Context, transactionID uuid.UUID) ([]matching.Candidate, error)
}

type Documents interface {
	Get(ctx context.Context, id uuid.UUID) (*document.Document, error)
}

type Learner interface {
	Learn(ctx context.Context, clientID uuid.UUID, contains, category string) (*rules.Rule, error)
}

type Uploads interface {
	Upload(ctx context.Context, p statement.UploadParams) (*statement.Upload, error)
}

type Reports interface {
	Build(ctx context.Context, filter transaction.ListFilter) (*export.Report, error)
}

type Alerts interface {
	List(ctx context.Context, runID uuid.UUID) ([]alert.Event, error)
}

// Services bundles what the screens read and change.
type Services struct {
	Runs         Runs
	Transactions Transactions
	Candidates   Candidates
	Documents    Documents
	Learner      Learner
	Uploads      Uploads
	Reports      Reports
	Alerts       Alerts
}
