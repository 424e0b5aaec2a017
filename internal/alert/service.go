package alert

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=alert
type Repository interface {
	// Insert stores the events whose dedup key is new and returns how many were stored.
	Insert(ctx context.Context, events []Event) (int, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]Event, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Emit validates and records events. Events already recorded are skipped, so the
// returned count only covers new findings.
func (s *Service) Emit(ctx context.Context, events []Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	out := make([]Event, len(events))

	for i, e := range events {
		if err := e.Validate(); err != nil {
			return 0, err
		}

		e.DedupKey = e.Key()
		out[i] = e
	}

	n, err := s.repo.Insert(ctx, out)
	if err != nil {
		return 0, fmt.Errorf("recording alerts: %w", err)
	}

	return n, nil
}

func (s *Service) List(ctx context.Context, runID uuid.UUID) ([]Event, error) {
	return s.repo.ListByRun(ctx, runID)
}
