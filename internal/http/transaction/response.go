package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/document"
	"github.com/MrJamesThe3rd/conciliador/internal/matching"
	"github.com/MrJamesThe3rd/conciliador/internal/normalize"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

type transactionResponse struct {
	ID          uuid.UUID             `json:"id"`
	ClientID    uuid.UUID             `json:"client_id"`
	AccountID   string                `json:"account_id"`
	StatementID *uuid.UUID            `json:"statement_id,omitempty"`
	Date        string                `json:"date"`
	Description string                `json:"description"`
	Amount      int64                 `json:"amount"`
	Display     string                `json:"display"`
	Currency    string                `json:"currency"`
	Direction   transaction.Direction `json:"direction"`
	Category    *string               `json:"category,omitempty"`
	Status      transaction.Status    `json:"status"`
	DocumentID  *uuid.UUID            `json:"document_id,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   *time.Time            `json:"updated_at,omitempty"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	currency := tx.Currency
	if currency == "" {
		currency = "CLP"
	}

	return transactionResponse{
		ID:          tx.ID,
		ClientID:    tx.ClientID,
		AccountID:   tx.AccountID,
		StatementID: tx.StatementID,
		Date:        tx.Date.Format(time.DateOnly),
		Description: tx.Description,
		Amount:      tx.Amount,
		Display:     normalize.Display(tx.Amount, currency),
		Currency:    currency,
		Direction:   tx.Direction(),
		Category:    tx.Category,
		Status:      tx.Status,
		DocumentID:  tx.DocumentID,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}

type documentResponse struct {
	ID           uuid.UUID     `json:"id"`
	Type         document.Type `json:"type"`
	Folio        int64         `json:"folio"`
	EmissionDate string        `json:"emission_date"`
	IssuerRUT    string        `json:"issuer_rut"`
	IssuerName   string        `json:"issuer_name"`
	Total        int64         `json:"total"`
}

type candidateResponse struct {
	DocumentID uuid.UUID         `json:"document_id"`
	Score      float64           `json:"score"`
	Reasons    []matching.Reason `json:"reasons"`
	AmountDiff int64             `json:"amount_diff"`
	DayDiff    int               `json:"day_diff"`
	Document   *documentResponse `json:"document,omitempty"`
}

func toCandidateResponse(c matching.Candidate, doc *document.Document) candidateResponse {
	resp := candidateResponse{
		DocumentID: c.DocumentID,
		Score:      c.Score,
		Reasons:    c.Reasons,
		AmountDiff: c.AmountDiff,
		DayDiff:    c.DayDiff,
	}

	if doc != nil {
		resp.Document = &documentResponse{
			ID:           doc.ID,
			Type:         doc.Type,
			Folio:        doc.Folio,
			EmissionDate: doc.EmissionDate.Format(time.DateOnly),
			IssuerRUT:    doc.IssuerRUT,
			IssuerName:   doc.IssuerName,
			Total:        doc.Total,
		}
	}

	return resp
}

type noteResponse struct {
	ID         int64                  `json:"id"`
	Action     transaction.NoteAction `json:"action"`
	DocumentID *uuid.UUID             `json:"document_id,omitempty"`
	Text       string                 `json:"text,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

func toNoteResponse(n *transaction.Note) noteResponse {
	return noteResponse{
		ID:         n.ID,
		Action:     n.Action,
		DocumentID: n.DocumentID,
		Text:       n.Text,
		CreatedAt:  n.CreatedAt,
	}
}
