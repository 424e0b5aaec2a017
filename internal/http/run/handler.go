package run

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/alert"
	"github.com/MrJamesThe3rd/conciliador/internal/export"
	"github.com/MrJamesThe3rd/conciliador/internal/http/respond"
	"github.com/MrJamesThe3rd/conciliador/internal/logger"
	"github.com/MrJamesThe3rd/conciliador/internal/pipeline"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

//go:generate mockgen -source=handler.go -destination=handler_mock.go -package=run
type Runs interface {
	Start(ctx context.Context, p pipeline.StartParams) (*pipeline.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*pipeline.Run, error)
	List(ctx context.Context, filter pipeline.ListFilter) ([]*pipeline.Run, error)
	RequestPause(ctx context.Context, id uuid.UUID) error
	Resume(ctx context.Context, id uuid.UUID) (*pipeline.Run, error)
	Retry(ctx context.Context, id uuid.UUID) (*pipeline.Run, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// Queue hands a run to the background executor.
type Queue interface {
	Enqueue(ctx context.Context, id uuid.UUID) error
}

type Alerts interface {
	List(ctx context.Context, runID uuid.UUID) ([]alert.Event, error)
}

type Reports interface {
	Build(ctx context.Context, filter transaction.ListFilter) (*export.Report, error)
}

type Handler struct {
	runs    Runs
	queue   Queue
	alerts  Alerts
	reports Reports
}

func NewHandler(runs Runs, queue Queue, alerts Alerts, reports Reports) *Handler {
	return &Handler{runs: runs, queue: queue, alerts: alerts, reports: reports}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.start)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/pause", h.pause)
	r.Post("/{id}/resume", h.resume)
	r.Post("/{id}/retry", h.retry)
	r.Post("/{id}/cancel", h.cancel)
	r.Get("/{id}/alerts", h.listAlerts)
	r.Get("/{id}/report", h.report)
}

type runResponse struct {
	ID              uuid.UUID        `json:"id"`
	ClientID        uuid.UUID        `json:"client_id"`
	AccountID       string           `json:"account_id"`
	Period          string           `json:"period"`
	State           pipeline.State   `json:"state"`
	Step            int              `json:"step"`
	TotalSteps      int              `json:"total_steps"`
	CurrentStep     pipeline.State   `json:"current_step,omitempty"`
	Counters        countersResponse `json:"counters"`
	PauseRequested  bool             `json:"pause_requested"`
	CancelRequested bool             `json:"cancel_requested"`
	Error           string           `json:"error,omitempty"`
	FailedStep      pipeline.State   `json:"failed_step,omitempty"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type countersResponse struct {
	Imported int `json:"imported"`
	Matched  int `json:"matched"`
	Alerts   int `json:"alerts"`
	Errors   int `json:"errors"`
}

func toResponse(run *pipeline.Run) runResponse {
	return runResponse{
		ID:          run.ID,
		ClientID:    run.ClientID,
		AccountID:   run.AccountID,
		Period:      run.Period.String(),
		State:       run.State,
		Step:        run.Step,
		TotalSteps:  run.TotalSteps,
		CurrentStep: run.CurrentStep(),
		Counters: countersResponse{
			Imported: run.Counters.Imported,
			Matched:  run.Counters.Matched,
			Alerts:   run.Counters.Alerts,
			Errors:   run.Counters.Errors,
		},
		PauseRequested:  run.PauseRequested,
		CancelRequested: run.CancelRequested,
		Error:           run.Error,
		FailedStep:      run.FailedStep,
		StartedAt:       run.StartedAt,
		CompletedAt:     run.CompletedAt,
		UpdatedAt:       run.UpdatedAt,
	}
}

type startRequest struct {
	ClientID  uuid.UUID `json:"client_id"`
	AccountID string    `json:"account_id"`
	Period    string    `json:"period"` // YYYY-MM
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.ClientID == uuid.Nil || req.AccountID == "" {
		respond.Error(w, r, http.StatusBadRequest, "client_id and account_id are required")
		return
	}

	period, err := pipeline.ParsePeriod(req.Period)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	run, err := h.runs.Start(r.Context(), pipeline.StartParams{
		ClientID:  req.ClientID,
		AccountID: req.AccountID,
		Period:    period,
	})
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	h.enqueue(r, run.ID)

	respond.JSON(w, r, http.StatusAccepted, toResponse(run))
}

// enqueue schedules execution. A failure leaves the run where it is; resume picks it up again.
func (h *Handler) enqueue(r *http.Request, id uuid.UUID) {
	if err := h.queue.Enqueue(r.Context(), id); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("run_id", id.String()).Msg("failed to enqueue run")
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var filter pipeline.ListFilter

	q := r.URL.Query()

	if s := q.Get("client_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "invalid client_id")
			return
		}

		filter.ClientID = &id
	}

	filter.AccountID = q.Get("account_id")

	if s := q.Get("period"); s != "" {
		p, err := pipeline.ParsePeriod(s)
		if err != nil {
			respond.Err(w, r, err)
			return
		}

		filter.Period = &p
	}

	if s := q.Get("state"); s != "" {
		state := pipeline.State(s)
		if !state.Valid() {
			respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("unknown state %q", s))
			return
		}

		filter.State = &state
	}

	runs, err := h.runs.List(r.Context(), filter)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	resp := make([]runResponse, len(runs))
	for i, run := range runs {
		resp[i] = toResponse(run)
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

func runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	run, err := h.runs.Get(r.Context(), id)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toResponse(run))
}

func (h *Handler) pause(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	if err := h.runs.RequestPause(r.Context(), id); err != nil {
		respond.Err(w, r, err)
		return
	}

	h.current(w, r, id, http.StatusAccepted)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	if err := h.runs.Cancel(r.Context(), id); err != nil {
		respond.Err(w, r, err)
		return
	}

	h.current(w, r, id, http.StatusAccepted)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request, id uuid.UUID, status int) {
	run, err := h.runs.Get(r.Context(), id)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, status, toResponse(run))
}

func (h *Handler) resume(w http.ResponseWriter, r *http.Request) {
	h.restart(w, r, h.runs.Resume)
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	h.restart(w, r, h.runs.Retry)
}

func (h *Handler) restart(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (*pipeline.Run, error)) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	run, err := fn(r.Context(), id)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	h.enqueue(r, run.ID)

	respond.JSON(w, r, http.StatusAccepted, toResponse(run))
}

type alertResponse struct {
	ID            int64          `json:"id"`
	Type          alert.Type     `json:"type"`
	Severity      alert.Severity `json:"severity"`
	TransactionID *uuid.UUID     `json:"transaction_id,omitempty"`
	Message       string         `json:"message"`
	CreatedAt     time.Time      `json:"created_at"`
	DispatchedAt  *time.Time     `json:"dispatched_at,omitempty"`
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	events, err := h.alerts.List(r.Context(), id)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	resp := make([]alertResponse, len(events))
	for i, e := range events {
		resp[i] = alertResponse{
			ID:            e.ID,
			Type:          e.Type,
			Severity:      e.Severity,
			TransactionID: e.TransactionID,
			Message:       e.Message,
			CreatedAt:     e.CreatedAt,
			DispatchedAt:  e.DispatchedAt,
		}
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

// report streams the period worksheet of the run as a zip.
func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	run, err := h.runs.Get(r.Context(), id)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	clientID := run.ClientID
	start, end := run.Period.Start(), run.Period.End()

	report, err := h.reports.Build(r.Context(), transaction.ListFilter{
		ClientID:  &clientID,
		AccountID: run.AccountID,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"conciliacion_%s_%s.zip\"", run.AccountID, run.Period))

	if err := report.WriteZip(w); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("run_id", id.String()).Msg("failed to write report")
	}
}
