package rules

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/http/respond"
	"github.com/MrJamesThe3rd/conciliador/internal/rules"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

//go:generate mockgen -source=handler.go -destination=handler_mock.go -package=rules
type Rules interface {
	RuleSet(ctx context.Context, clientID uuid.UUID) (*rules.RuleSet, error)
	Save(ctx context.Context, clientID uuid.UUID, name string, chain []rules.Rule) (*rules.RuleSet, error)
	Learn(ctx context.Context, clientID uuid.UUID, contains, category string) (*rules.Rule, error)
}

type Handler struct {
	svc Rules
}

func NewHandler(svc Rules) *Handler {
	return &Handler{svc: svc}
}

// Routes expects a clientID URL parameter from the parent route.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.save)
	r.Post("/learn", h.learn)
}

type ruleBody struct {
	Name      string                 `json:"name"`
	Contains  string                 `json:"contains,omitempty"`
	Pattern   string                 `json:"pattern,omitempty"`
	MinAmount *int64                 `json:"min_amount,omitempty"`
	MaxAmount *int64                 `json:"max_amount,omitempty"`
	Direction *transaction.Direction `json:"direction,omitempty"`
	Category  string                 `json:"category"`
}

type ruleSetBody struct {
	Name  string     `json:"name"`
	Rules []ruleBody `json:"rules"`
}

func toBody(r rules.Rule) ruleBody {
	return ruleBody{
		Name:      r.Name,
		Contains:  r.Contains,
		Pattern:   r.Pattern,
		MinAmount: r.MinAmount,
		MaxAmount: r.MaxAmount,
		Direction: r.Direction,
		Category:  r.Category,
	}
}

func toSetBody(rs *rules.RuleSet) ruleSetBody {
	body := ruleSetBody{Name: rs.Name, Rules: make([]ruleBody, len(rs.Rules))}
	for i, r := range rs.Rules {
		body.Rules[i] = toBody(r)
	}

	return body
}

func clientID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "clientID"))
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid client id")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	rs, err := h.svc.RuleSet(r.Context(), id)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toSetBody(rs))
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	var req ruleSetBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	chain := make([]rules.Rule, len(req.Rules))
	for i, b := range req.Rules {
		chain[i] = rules.Rule{
			Name:      b.Name,
			Contains:  b.Contains,
			Pattern:   b.Pattern,
			MinAmount: b.MinAmount,
			MaxAmount: b.MaxAmount,
			Direction: b.Direction,
			Category:  b.Category,
		}
	}

	rs, err := h.svc.Save(r.Context(), id, req.Name, chain)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toSetBody(rs))
}

type learnRequest struct {
	Contains string `json:"contains"`
	Category string `json:"category"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.Contains == "" || req.Category == "" {
		respond.Error(w, r, http.StatusBadRequest, "contains and category are required")
		return
	}

	rule, err := h.svc.Learn(r.Context(), id, req.Contains, req.Category)
	if err != nil {
		respond.Err(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusCreated, toBody(*rule))
}
