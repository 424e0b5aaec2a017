package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	SetCategory(ctx context.Context, id uuid.UUID, category string) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	Supersede(ctx context.Context, id, keeperID uuid.UUID) error

	// ApplyDecision updates status and document link and appends the note atomically.
	ApplyDecision(ctx context.Context, d Decision) error
	AddNote(ctx context.Context, note *Note) error
	ListNotes(ctx context.Context, id uuid.UUID) ([]*Note, error)

	BeginImport(ctx context.Context, clientID uuid.UUID, accountID string) (ImportTx, error)
}

type ImportTx interface {
	ExistingKeys(ctx context.Context, clientID uuid.UUID, accountID string, keys []string) (map[string]uuid.UUID, error)
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

// CandidateLookup tells whether a document was proposed for a transaction by the last match pass.
type CandidateLookup interface {
	IsCandidate(ctx context.Context, transactionID, documentID uuid.UUID) (bool, error)
}

type Service struct {
	repo       Repository
	candidates CandidateLookup
}

func NewService(repo Repository, candidates CandidateLookup) *Service {
	return &Service{repo: repo, candidates: candidates}
}

type CreateParams struct {
	ClientID              uuid.UUID
	AccountID             string
	StatementID           *uuid.UUID
	Date                  time.Time
	Description           string
	NormalizedDescription string
	Amount                int64
	Currency              string
	DedupKey              string
}

type ListFilter struct {
	ClientID          *uuid.UUID
	AccountID         string
	Status            *Status
	StartDate         *time.Time
	EndDate           *time.Time
	Uncategorized     bool
	IncludeSuperseded bool
}

// Decision is a status change on a transaction with its audit note.
type Decision struct {
	TransactionID uuid.UUID
	Status        Status
	DocumentID    *uuid.UUID
	Note          Note
}

type ConfirmParams struct {
	TransactionID uuid.UUID
	DocumentID    uuid.UUID
	Notes         string
}

type RejectParams struct {
	TransactionID uuid.UUID
	DocumentID    uuid.UUID
	Notes         string
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) Notes(ctx context.Context, id uuid.UUID) ([]*Note, error) {
	return s.repo.ListNotes(ctx, id)
}

func (s *Service) SetCategory(ctx context.Context, id uuid.UUID, category string) error {
	return s.repo.SetCategory(ctx, id, category)
}

// SetMatchOutcome records the result of a match pass on an unlinked transaction.
// Only unlinked statuses are accepted; linking goes through Confirm.
func (s *Service) SetMatchOutcome(ctx context.Context, id uuid.UUID, status Status) error {
	if status.Linked() || !status.Valid() {
		return fmt.Errorf("%w: %s is not a match outcome", ErrInvalidStatus, status)
	}

	return s.repo.SetStatus(ctx, id, status)
}

// Confirm links a document to the transaction. The status becomes matched when the
// document was one of the offered candidates and manual otherwise.
func (s *Service) Confirm(ctx context.Context, p ConfirmParams) (*Transaction, error) {
	tx, err := s.loadActive(ctx, p.TransactionID)
	if err != nil {
		return nil, err
	}

	offered, err := s.candidates.IsCandidate(ctx, p.TransactionID, p.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("checking candidates: %w", err)
	}

	status := StatusManual
	if offered {
		status = StatusMatched
	}

	return s.link(ctx, tx, p.DocumentID, status, NoteConfirmed, p.Notes)
}

// AutoConfirm links the top candidate chosen by the pipeline without human review.
func (s *Service) AutoConfirm(ctx context.Context, id, documentID uuid.UUID, score float64) (*Transaction, error) {
	tx, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.link(ctx, tx, documentID, StatusMatched, NoteAutoMatch, fmt.Sprintf("auto-accepted with score %.3f", score))
}

func (s *Service) link(ctx context.Context, tx *Transaction, documentID uuid.UUID, status Status, action NoteAction, text string) (*Transaction, error) {
	doc := documentID

	d := Decision{
		TransactionID: tx.ID,
		Status:        status,
		DocumentID:    &doc,
		Note: Note{
			TransactionID: tx.ID,
			Action:        action,
			DocumentID:    &doc,
			Text:          text,
		},
	}

	if err := s.repo.ApplyDecision(ctx, d); err != nil {
		return nil, fmt.Errorf("applying decision: %w", err)
	}

	tx.Status = status
	tx.DocumentID = &doc

	return tx, nil
}

// Reject records that a proposed document is not the counterpart. The transaction keeps its
// status and stays eligible for the next match pass.
func (s *Service) Reject(ctx context.Context, p RejectParams) error {
	tx, err := s.loadActive(ctx, p.TransactionID)
	if err != nil {
		return err
	}

	doc := p.DocumentID

	return s.repo.AddNote(ctx, &Note{
		TransactionID: tx.ID,
		Action:        NoteRejected,
		DocumentID:    &doc,
		Text:          p.Notes,
	})
}

// Unlink reverts a confirmed link back to pending.
func (s *Service) Unlink(ctx context.Context, id uuid.UUID, notes string) (*Transaction, error) {
	tx, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	if !tx.Status.Linked() {
		return nil, fmt.Errorf("%w: transaction is %s", ErrInvalidStatus, tx.Status)
	}

	d := Decision{
		TransactionID: tx.ID,
		Status:        StatusPending,
		Note: Note{
			TransactionID: tx.ID,
			Action:        NoteUnlinked,
			DocumentID:    tx.DocumentID,
			Text:          notes,
		},
	}

	if err := s.repo.ApplyDecision(ctx, d); err != nil {
		return nil, fmt.Errorf("applying decision: %w", err)
	}

	tx.Status = StatusPending
	tx.DocumentID = nil

	return tx, nil
}

func (s *Service) loadActive(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if tx.SupersededBy != nil {
		return nil, ErrSuperseded
	}

	return tx, nil
}

type ImportResult struct {
	Imported   []*Transaction
	Duplicates int
}

// ImportBatch inserts normalized movements, skipping any whose dedup key is already stored for
// the client's account or repeated within the batch. Re-importing a statement is a no-op.
func (s *Service) ImportBatch(ctx context.Context, clientID uuid.UUID, accountID string, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	itx, err := s.repo.BeginImport(ctx, clientID, accountID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	keys := make([]string, 0, len(params))
	for _, p := range params {
		keys = append(keys, p.DedupKey)
	}

	existing, err := itx.ExistingKeys(ctx, clientID, accountID, keys)
	if err != nil {
		return nil, fmt.Errorf("find existing: %w", err)
	}

	seen := make(map[string]struct{}, len(params))
	result := &ImportResult{}

	var fresh []CreateParams

	for _, p := range params {
		if _, ok := existing[p.DedupKey]; ok {
			result.Duplicates++
			continue
		}

		if _, ok := seen[p.DedupKey]; ok {
			result.Duplicates++
			continue
		}

		seen[p.DedupKey] = struct{}{}
		fresh = append(fresh, p)
	}

	if len(fresh) == 0 {
		return result, nil
	}

	txs := paramsToTransactions(fresh)
	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	// Rows a concurrent writer stored first come back without an id.
	for _, tx := range txs {
		if tx.ID == uuid.Nil {
			result.Duplicates++
			continue
		}

		result.Imported = append(result.Imported, tx)
	}

	return result, nil
}

// SupersedeDuplicates collapses transactions in scope that share a dedup key,
// keeping the linked record, or the oldest one when neither is linked. Returns how many were superseded.
func (s *Service) SupersedeDuplicates(ctx context.Context, filter ListFilter) (int, error) {
	filter.IncludeSuperseded = false

	txs, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("listing transactions: %w", err)
	}

	keepers := make(map[string]*Transaction, len(txs))
	superseded := 0

	for _, tx := range txs {
		key := tx.AccountID + "|" + tx.DedupKey

		keeper, ok := keepers[key]
		if !ok {
			keepers[key] = tx
			continue
		}

		keep, drop := keeper, tx
		if preferKeep(tx, keeper) {
			keep, drop = tx, keeper
			keepers[key] = tx
		}

		if err := s.repo.Supersede(ctx, drop.ID, keep.ID); err != nil {
			return superseded, fmt.Errorf("superseding %s: %w", drop.ID, err)
		}

		superseded++
	}

	return superseded, nil
}

func preferKeep(a, b *Transaction) bool {
	if a.Status.Linked() != b.Status.Linked() {
		return a.Status.Linked()
	}

	return a.CreatedAt.Before(b.CreatedAt)
}

func paramsToTransactions(params []CreateParams) []*Transaction {
	txs := make([]*Transaction, len(params))
	for i, p := range params {
		currency := p.Currency
		if currency == "" {
			currency = "CLP"
		}

		txs[i] = &Transaction{
			ClientID:              p.ClientID,
			AccountID:             p.AccountID,
			StatementID:           p.StatementID,
			Date:                  p.Date,
			Description:           p.Description,
			NormalizedDescription: p.NormalizedDescription,
			Amount:                p.Amount,
			Currency:              currency,
			Status:                StatusPending,
			DedupKey:              p.DedupKey,
		}
	}

	return txs
}
