package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/document"
	"github.com/MrJamesThe3rd/conciliador/internal/http/respond"
	"github.com/MrJamesThe3rd/conciliador/internal/logger"
	"github.com/MrJamesThe3rd/conciliador/internal/matching"
	"github.com/MrJamesThe3rd/conciliador/internal/rules"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

//go:generate mockgen -source=handler.go -destination=handler_mock.go -package=transaction
type Transactions interface {
	Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
	Notes(ctx context.Context, id uuid.UUID) ([]*transaction.Note, error)
	Summary(ctx context.Context, filter transaction.ListFilter) (transaction.Summary, error)
	Confirm(ctx context.Context, p transaction.ConfirmParams) (*transaction.Transaction, error)
	Reject(ctx context.Context, p transaction.RejectParams) error
	Unlink(ctx context.Context, id uuid.UUID, notes string) (*transaction.Transaction, error)
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

type Handler struct {
	svc        Transactions
	candidates Candidates
	documents  Documents
	learner    Learner
}

func NewHandler(svc Transactions, candidates Candidates, documents Documents, learner Learner) *Handler {
	return &Handler{svc: svc, candidates: candidates, documents: documents, learner: learner}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/summary", h.summary)
	r.Get("/{id}", h.get)
	r.Get("/{id}/notes", h.notes)
	r.Get("/{id}/candidates", h.listCandidates)
	r.Post("/{id}/confirm", h.confirm)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/unlink", h.unlink)
	r.Patch("/{id}/category", h.updateCategory)
}

// filterFromQuery reads client_id, account_id, status, start_date, end_date and uncategorized.
func filterFromQuery(r *http.Request) (transaction.ListFilter, error) {
	var filter transaction.ListFilter

	q := r.URL.Query()

	if s := q.Get("client_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return filter, errors.New("invalid client_id")
		}

		filter.ClientID = &id
	}

	filter.AccountID = q.Get("account_id")

	if s := q.Get("status"); s != "" {
		status := transaction.Status(s)
		if !status.Valid() {
			return filter, errors.New("invalid status")
		}

		filter.Status = &status
	}

	if s := q.Get("start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return filter, errors.New("invalid start_date")
		}

		filter.StartDate = new(t)
	}

	if s := q.Get("end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return filter, errors.New("invalid end_date")
		}

		filter.EndDate = new(t)
	}

	filter.Uncategorized = q.Get("uncategorized") == "true"

	return filter, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toResponseList(txs))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.svc.Summary(r.Context(), filter)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, s)
}

func txID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := txID(w, r)
	if !ok {
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toResponse(tx))
}

func (h *Handler) notes(w http.ResponseWriter, r *http.Request) {
	id, ok := txID(w, r)
	if !ok {
		return
	}

	notes, err := h.svc.Notes(r.Context(), id)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	resp := make([]noteResponse, len(notes))
	for i, n := range notes {
		resp[i] = toNoteResponse(n)
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

// listCandidates returns the ranked proposals of the last match pass with their documents.
func (h *Handler) listCandidates(w http.ResponseWriter, r *http.Request) {
	id, ok := txID(w, r)
	if !ok {
		return
	}

	candidates, err := h.candidates.Candidates(r.Context(), id)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	resp := make([]candidateResponse, 0, len(candidates))

	for _, c := range candidates {
		doc, err := h.documents.Get(r.Context(), c.DocumentID)
		if err != nil && !errors.Is(err, document.ErrNotFound) {
			respond.Err(w, r, err)
			return
		}

		resp = append(resp, toCandidateResponse(c, doc))
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

type decisionRequest struct {
	DocumentID uuid.UUID `json:"document_id"`
	Notes      string    `json:"notes"`
}

func decodeDecision(w http.ResponseWriter, r *http.Request) (decisionRequest, bool) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return req, false
	}

	if req.DocumentID == uuid.Nil {
		respond.Error(w, r, http.StatusBadRequest, "document_id is required")
		return req, false
	}

	return req, true
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := txID(w, r)
	if !ok {
		return
	}

	req, ok := decodeDecision(w, r)
	if !ok {
		return
	}

	tx, err := h.svc.Confirm(r.Context(), transaction.ConfirmParams{
		TransactionID: id,
		DocumentID:    req.DocumentID,
		Notes:         req.Notes,
	})
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toResponse(tx))
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := txID(w, r)
	if !ok {
		return
	}

	req, ok := decodeDecision(w, r)
	if !ok {
		return
	}

	err := h.svc.Reject(r.Context(), transaction.RejectParams{
		TransactionID: id,
		DocumentID:    req.DocumentID,
		Notes:         req.Notes,
	})
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type unlinkRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) unlink(w http.ResponseWriter, r *http.Request) {
	id, ok := txID(w, r)
	if !ok {
		return
	}

	var req unlinkRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	tx, err := h.svc.Unlink(r.Context(), id, req.Notes)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toResponse(tx))
}

type updateCategoryRequest struct {
	Category string `json:"category"`
	// Learn appends a rule so later movements with the same description get this category.
	Learn bool `json:"learn"`
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := txID(w, r)
	if !ok {
		return
	}

	var req updateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.Category == "" {
		respond.Error(w, r, http.StatusBadRequest, "category is required")
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	if err := h.svc.SetCategory(r.Context(), id, req.Category); err != nil {
		respond.Err(w, r, err)
		return
	}

	tx.Category = &req.Category

	if req.Learn {
		rule, err := h.learner.Learn(r.Context(), tx.ClientID, tx.NormalizedDescription, req.Category)
		if err != nil {
			respond.Err(w, r, err)
			return
		}

		log := logger.FromContext(r.Context())
		log.Info().Str("rule", rule.Name).Str("category", rule.Category).Msg("rule learned")
	}

	respond.JSON(w, r, http.StatusOK, toResponse(tx))
}
