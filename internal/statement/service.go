package statement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=statement
type Repository interface {
	CreateUpload(ctx context.Context, u *Upload) error
	GetUpload(ctx context.Context, id uuid.UUID) (*Upload, error)
	ListUploads(ctx context.Context, filter UploadFilter) ([]*Upload, error)
	MarkImported(ctx context.Context, id uuid.UUID, stats ImportStats) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type UploadFilter struct {
	ClientID  *uuid.UUID
	AccountID string
	Status    *UploadStatus
}

type UploadParams struct {
	ClientID  uuid.UUID
	AccountID string
	Bank      Bank
	Filename  string
	Content   []byte
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upload stores a statement file for the next pipeline run of its account.
// The file is parsed by the import step, not here.
func (s *Service) Upload(ctx context.Context, p UploadParams) (*Upload, error) {
	if !p.Bank.Valid() {
		return nil, fmt.Errorf("%w: unknown bank %q", ErrInvalidUpload, p.Bank)
	}

	if p.AccountID == "" {
		return nil, fmt.Errorf("%w: missing account", ErrInvalidUpload)
	}

	if len(p.Content) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidUpload)
	}

	u := &Upload{
		ClientID:  p.ClientID,
		AccountID: p.AccountID,
		Bank:      p.Bank,
		Filename:  p.Filename,
		Content:   p.Content,
		Status:    UploadPending,
	}

	if err := s.repo.CreateUpload(ctx, u); err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Upload, error) {
	return s.repo.GetUpload(ctx, id)
}

func (s *Service) List(ctx context.Context, filter UploadFilter) ([]*Upload, error) {
	return s.repo.ListUploads(ctx, filter)
}

// Pending returns the account's uploads not yet imported, oldest first.
func (s *Service) Pending(ctx context.Context, clientID uuid.UUID, accountID string) ([]*Upload, error) {
	status := UploadPending

	return s.repo.ListUploads(ctx, UploadFilter{ClientID: &clientID, AccountID: accountID, Status: &status})
}

func (s *Service) MarkImported(ctx context.Context, id uuid.UUID, stats ImportStats) error {
	return s.repo.MarkImported(ctx, id, stats)
}

// Imported returns the account's uploads already read by an import step.
func (s *Service) Imported(ctx context.Context, clientID uuid.UUID, accountID string) ([]*Upload, error) {
	status := UploadImported

	return s.repo.ListUploads(ctx, UploadFilter{ClientID: &clientID, AccountID: accountID, Status: &status})
}

func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.repo.MarkFailed(ctx, id, reason)
}
