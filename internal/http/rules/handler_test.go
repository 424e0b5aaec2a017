package rules_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	handler "github.com/MrJamesThe3rd/conciliador/internal/http/rules"
	"github.com/MrJamesThe3rd/conciliador/internal/rules"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

func newServer(t *testing.T) (http.Handler, *handler.MockRules) {
	t.Helper()

	svc := handler.NewMockRules(gomock.NewController(t))

	r := chi.NewRouter()
	r.Route("/clients/{clientID}/rules", handler.NewHandler(svc).Routes)

	return r, svc
}

func do(srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	return rec
}

func TestHandler_Get(t *testing.T) {
	srv, svc := newServer(t)
	clientID := uuid.New()
	cargo := transaction.DirectionCargo

	svc.EXPECT().RuleSet(gomock.Any(), clientID).Return(&rules.RuleSet{
		ClientID: clientID,
		Name:     "default",
		Rules: []rules.Rule{
			{Name: "luz", Contains: "enel", Direction: &cargo, Category: "servicios"},
		},
	}, nil)

	rec := do(srv, http.MethodGet, "/clients/"+clientID.String()+"/rules/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Name  string `json:"name"`
		Rules []struct {
			Contains  string `json:"contains"`
			Direction string `json:"direction"`
			Category  string `json:"category"`
		} `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "default", resp.Name)
	require.Len(t, resp.Rules, 1)
	assert.Equal(t, "enel", resp.Rules[0].Contains)
	assert.Equal(t, "cargo", resp.Rules[0].Direction)
}

func TestHandler_GetMissing(t *testing.T) {
	srv, svc := newServer(t)
	clientID := uuid.New()

	svc.EXPECT().RuleSet(gomock.Any(), clientID).Return(nil, rules.ErrNotFound)

	rec := do(srv, http.MethodGet, "/clients/"+clientID.String()+"/rules/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(srv, http.MethodGet, "/clients/nope/rules/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Save(t *testing.T) {
	t.Run("ReplacesChain", func(t *testing.T) {
		srv, svc := newServer(t)
		clientID := uuid.New()

		svc.EXPECT().Save(gomock.Any(), clientID, "2026", gomock.Any()).
			DoAndReturn(func(_ context.Context, id uuid.UUID, name string, chain []rules.Rule) (*rules.RuleSet, error) {
				require.Len(t, chain, 2)
				assert.Equal(t, "sueldo", chain[0].Category)
				require.NotNil(t, chain[1].MinAmount)
				assert.Equal(t, int64(1_000_000), *chain[1].MinAmount)

				return &rules.RuleSet{ClientID: id, Name: name, Rules: chain}, nil
			})

		body := `{"name":"2026","rules":[
			{"name":"sueldo","contains":"remuneracion","category":"sueldo"},
			{"name":"grandes","min_amount":1000000,"category":"revisar"}
		]}`

		rec := do(srv, http.MethodPut, "/clients/"+clientID.String()+"/rules/", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"2026"`)
	})

	t.Run("InvalidRule", func(t *testing.T) {
		srv, svc := newServer(t)
		clientID := uuid.New()

		svc.EXPECT().Save(gomock.Any(), clientID, "x", gomock.Any()).Return(nil, rules.ErrInvalidRule)

		rec := do(srv, http.MethodPut, "/clients/"+clientID.String()+"/rules/", `{"name":"x","rules":[{"name":"r"}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Learn(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "Learned", body: `{"contains":"Copec","category":"combustible"}`, want: http.StatusCreated},
		{name: "MissingCategory", body: `{"contains":"Copec"}`, want: http.StatusBadRequest},
		{name: "BadJSON", body: `[`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, svc := newServer(t)
			clientID := uuid.New()

			if tt.want == http.StatusCreated {
				svc.EXPECT().Learn(gomock.Any(), clientID, "Copec", "combustible").
					Return(&rules.Rule{Name: "learned: copec", Contains: "copec", Category: "combustible"}, nil)
			}

			rec := do(srv, http.MethodPost, "/clients/"+clientID.String()+"/rules/learn", tt.body)
			assert.Equal(t, tt.want, rec.Code)

			if tt.want == http.StatusCreated {
				assert.Contains(t, rec.Body.String(), `"contains":"copec"`)
			}
		})
	}
}
