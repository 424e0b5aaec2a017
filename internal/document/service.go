package document

import (
	"context"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=document
type Repository interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	ListDocuments(ctx context.Context, filter ListFilter) ([]*Document, error)
	FindCandidates(ctx context.Context, q CandidateQuery) ([]*Document, error)
}

type ListFilter struct {
	ClientID  uuid.UUID
	IssuerRUT string
	Type      *Type
	From      *time.Time
	To        *time.Time
}

// CandidateQuery selects a client's documents emitted inside the date window OR whose total
// falls inside the amount range.
type CandidateQuery struct {
	ClientID uuid.UUID
	From     time.Time
	To       time.Time
	MinTotal int64
	MaxTotal int64
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetDocument(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Document, error) {
	return s.repo.ListDocuments(ctx, filter)
}

// Pool returns the candidate documents for a movement of amount (absolute, minor units) on date.
func (s *Service) Pool(ctx context.Context, clientID uuid.UUID, date time.Time, amount, tolerance int64, windowDays int) ([]*Document, error) {
	window := time.Duration(windowDays) * 24 * time.Hour

	return s.repo.FindCandidates(ctx, CandidateQuery{
		ClientID: clientID,
		From:     date.Add(-window),
		To:       date.Add(window),
		MinTotal: max(amount-tolerance, 0),
		MaxTotal: amount + tolerance,
	})
}
