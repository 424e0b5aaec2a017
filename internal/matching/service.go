package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/document"
	"github.com/MrJamesThe3rd/conciliador/internal/logger"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	// ReplaceCandidates swaps the stored proposals of a transaction for the result of a new pass.
	ReplaceCandidates(ctx context.Context, transactionID uuid.UUID, candidates []Candidate) error
	ListCandidates(ctx context.Context, transactionID uuid.UUID) ([]Candidate, error)
	IsCandidate(ctx context.Context, transactionID, documentID uuid.UUID) (bool, error)
}

// DocumentSource narrows a client's documents down to those worth scoring.
type DocumentSource interface {
	Pool(ctx context.Context, clientID uuid.UUID, date time.Time, amount, tolerance int64, windowDays int) ([]*document.Document, error)
}

// Outcome is the result of matching a single transaction.
type Outcome struct {
	TransactionID uuid.UUID
	Status        transaction.Status
	Candidates    []Candidate
	Skipped       []*DocumentError
}

// Top returns the best candidate, if any.
func (o *Outcome) Top() (Candidate, bool) {
	if len(o.Candidates) == 0 {
		return Candidate{}, false
	}

	return o.Candidates[0], true
}

type Service struct {
	repo    Repository
	docs    DocumentSource
	matcher *Matcher
	cfg     Config
}

func NewService(repo Repository, docs DocumentSource, cfg Config) *Service {
	return &Service{
		repo:    repo,
		docs:    docs,
		matcher: NewMatcher(cfg),
		cfg:     cfg,
	}
}

func (s *Service) Config() Config {
	return s.cfg
}

// MatchTransaction scores the client's documents against tx and stores the ranked candidates.
// It does not change the transaction; the caller applies Outcome.Status.
func (s *Service) MatchTransaction(ctx context.Context, tx *transaction.Transaction) (*Outcome, error) {
	pool, err := s.docs.Pool(ctx, tx.ClientID, tx.Date, tx.AbsAmount(), s.cfg.AmountTolerance, s.cfg.DateWindowDays)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}

	candidates, skipped := s.matcher.Match(tx, pool)

	log := logger.FromContext(ctx)
	for _, e := range skipped {
		log.Warn().
			Str("transaction_id", tx.ID.String()).
			Str("document_id", e.DocumentID.String()).
			Err(e.Err).
			Msg("skipping malformed document")
	}

	if err := s.repo.ReplaceCandidates(ctx, tx.ID, candidates); err != nil {
		return nil, fmt.Errorf("storing candidates: %w", err)
	}

	return &Outcome{
		TransactionID: tx.ID,
		Status:        s.statusFor(candidates),
		Candidates:    candidates,
		Skipped:       skipped,
	}, nil
}

func (s *Service) statusFor(candidates []Candidate) transaction.Status {
	switch {
	case len(candidates) == 0:
		return transaction.StatusUnmatched
	case candidates[0].Score >= s.cfg.ConfidentScore:
		return transaction.StatusPending
	}

	return transaction.StatusPartial
}

func (s *Service) Candidates(ctx context.Context, transactionID uuid.UUID) ([]Candidate, error) {
	return s.repo.ListCandidates(ctx, transactionID)
}
