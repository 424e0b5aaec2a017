package statement

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/http/respond"
	"github.com/MrJamesThe3rd/conciliador/internal/normalize"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
)

//go:generate mockgen -source=handler.go -destination=handler_mock.go -package=statement
type Uploads interface {
	Upload(ctx context.Context, p statement.UploadParams) (*statement.Upload, error)
	Get(ctx context.Context, id uuid.UUID) (*statement.Upload, error)
	List(ctx context.Context, filter statement.UploadFilter) ([]*statement.Upload, error)
}

type Handler struct {
	svc     Uploads
	maxSize int64
}

func NewHandler(svc Uploads, maxSize int64) *Handler {
	return &Handler{svc: svc, maxSize: maxSize}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.upload)
	r.Post("/preview", h.preview)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

type uploadResponse struct {
	ID             uuid.UUID              `json:"id"`
	ClientID       uuid.UUID              `json:"client_id"`
	AccountID      string                 `json:"account_id"`
	Bank           statement.Bank         `json:"bank"`
	Filename       string                 `json:"filename"`
	Size           int                    `json:"size"`
	Status         statement.UploadStatus `json:"status"`
	Error          string                 `json:"error,omitempty"`
	OpeningBalance *int64                 `json:"opening_balance,omitempty"`
	ClosingBalance *int64                 `json:"closing_balance,omitempty"`
	MovementsTotal *int64                 `json:"movements_total,omitempty"`
	Reconciles     bool                   `json:"reconciles"`
	CreatedAt      time.Time              `json:"created_at"`
}

func toResponse(u *statement.Upload) uploadResponse {
	return uploadResponse{
		ID:             u.ID,
		ClientID:       u.ClientID,
		AccountID:      u.AccountID,
		Bank:           u.Bank,
		Filename:       u.Filename,
		Size:           len(u.Content),
		Status:         u.Status,
		Error:          u.Error,
		OpeningBalance: u.OpeningBalance,
		ClosingBalance: u.ClosingBalance,
		MovementsTotal: u.MovementsTotal,
		Reconciles:     u.Reconciles(),
		CreatedAt:      u.CreatedAt,
	}
}

type form struct {
	clientID  uuid.UUID
	accountID string
	bank      statement.Bank
	filename  string
	content   []byte
}

// readForm reads the multipart fields client_id, account_id, bank and file.
func (h *Handler) readForm(w http.ResponseWriter, r *http.Request) (*form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)

	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, r, http.StatusRequestEntityTooLarge, "file too large")
			return nil, false
		}

		respond.Error(w, r, http.StatusBadRequest, "failed to parse form: "+err.Error())

		return nil, false
	}

	clientID, err := uuid.Parse(r.FormValue("client_id"))
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "client_id field is required")
		return nil, false
	}

	bank := statement.Bank(r.FormValue("bank"))
	if !bank.Valid() {
		respond.Error(w, r, http.StatusBadRequest, "bank field must be one of the supported banks")
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "file field is required")
		return nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "failed to read file")
		return nil, false
	}

	return &form{
		clientID:  clientID,
		accountID: r.FormValue("account_id"),
		bank:      bank,
		filename:  header.Filename,
		content:   content,
	}, true
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	f, ok := h.readForm(w, r)
	if !ok {
		return
	}

	u, err := h.svc.Upload(r.Context(), statement.UploadParams{
		ClientID:  f.clientID,
		AccountID: f.accountID,
		Bank:      f.bank,
		Filename:  f.filename,
		Content:   f.content,
	})
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusCreated, toResponse(u))
}

type previewRow struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Display     string `json:"display"`
}

type skippedRow struct {
	Line   int    `json:"line"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type previewResponse struct {
	Rows           []previewRow `json:"rows"`
	Skipped        []skippedRow `json:"skipped"`
	Duplicates     int          `json:"duplicates"`
	OpeningBalance *int64       `json:"opening_balance,omitempty"`
	ClosingBalance *int64       `json:"closing_balance,omitempty"`
	MovementsTotal int64        `json:"movements_total"`
}

// preview parses the file without storing it so the operator can check the bank choice.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	f, ok := h.readForm(w, r)
	if !ok {
		return
	}

	opts := normalize.Options{ClientID: f.clientID, AccountID: f.accountID, Bank: f.bank}

	file, err := normalize.ParseFile(opts, bytes.NewReader(f.content))
	if err != nil {
		var pe *statement.ParseError
		if errors.As(err, &pe) {
			respond.Error(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}

		respond.Err(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, toPreview(file))
}

func toPreview(f *normalize.File) previewResponse {
	resp := previewResponse{
		Rows:           make([]previewRow, 0, len(f.Records)),
		Skipped:        make([]skippedRow, 0, len(f.Skipped)),
		Duplicates:     f.Duplicates,
		OpeningBalance: f.OpeningBalance,
		ClosingBalance: f.ClosingBalance,
		MovementsTotal: f.MovementsTotal,
	}

	for _, rec := range f.Records {
		resp.Rows = append(resp.Rows, previewRow{
			Date:        rec.Date.Format(time.DateOnly),
			Description: rec.Description,
			Amount:      rec.Amount,
			Display:     normalize.Display(rec.Amount, rec.Currency),
		})
	}

	for _, s := range f.Skipped {
		resp.Skipped = append(resp.Skipped, skippedRow{Line: s.Line, Field: s.Field, Value: s.Value, Reason: s.Err.Error()})
	}

	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var filter statement.UploadFilter

	if s := r.URL.Query().Get("client_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "invalid client_id")
			return
		}

		filter.ClientID = &id
	}

	filter.AccountID = r.URL.Query().Get("account_id")

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(statement.UploadStatus(s))
	}

	uploads, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	resp := make([]uploadResponse, len(uploads))
	for i, u := range uploads {
		resp[i] = toResponse(u)
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid id")
		return
	}

	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toResponse(u))
}
