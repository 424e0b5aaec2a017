package statement_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	uploads "github.com/MrJamesThe3rd/conciliador/internal/http/statement"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
)

const cartola = `Fecha;Descripción;Monto;Saldo
15/01/2026;PAGO PROVEEDOR;-50.000;1.200.000
16/01/2026;ABONO TRANSFERENCIA;125.500;1.325.500
17/01/2026;COMISION;abc;1.325.500
`

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)

		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func newServer(t *testing.T, maxSize int64) (http.Handler, *uploads.MockUploads) {
	t.Helper()

	svc := uploads.NewMockUploads(gomock.NewController(t))

	r := chi.NewRouter()
	r.Route("/uploads", uploads.NewHandler(svc, maxSize).Routes)

	return r, svc
}

func TestHandler_Upload(t *testing.T) {
	srv, svc := newServer(t, 1<<20)
	clientID := uuid.New()

	svc.EXPECT().Upload(gomock.Any(), statement.UploadParams{
		ClientID:  clientID,
		AccountID: "cc-001",
		Bank:      statement.BankEstado,
		Filename:  "enero.csv",
		Content:   []byte(cartola),
	}).Return(&statement.Upload{
		ID: uuid.New(), ClientID: clientID, AccountID: "cc-001", Bank: statement.BankEstado,
		Filename: "enero.csv", Content: []byte(cartola), Status: statement.UploadPending,
	}, nil)

	body, ct := multipartBody(t, map[string]string{
		"client_id": clientID.String(), "account_id": "cc-001", "bank": "bancoestado",
	}, "enero.csv", cartola)

	req := httptest.NewRequest(http.MethodPost, "/uploads/", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, float64(len(cartola)), resp["size"])
}

func TestHandler_UploadRejectsBadForm(t *testing.T) {
	clientID := uuid.New().String()

	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		maxSize  int64
		want     int
	}{
		{name: "MissingClient", fields: map[string]string{"bank": "bancoestado"}, filename: "a.csv", want: http.StatusBadRequest},
		{name: "UnknownBank", fields: map[string]string{"client_id": clientID, "bank": "banco-x"}, filename: "a.csv", want: http.StatusBadRequest},
		{name: "MissingFile", fields: map[string]string{"client_id": clientID, "bank": "bancoestado"}, want: http.StatusBadRequest},
		{name: "TooLarge", fields: map[string]string{"client_id": clientID, "bank": "bancoestado"}, filename: "a.csv", maxSize: 64, want: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maxSize := tt.maxSize
			if maxSize == 0 {
				maxSize = 1 << 20
			}

			srv, _ := newServer(t, maxSize)
			body, ct := multipartBody(t, tt.fields, tt.filename, cartola)

			req := httptest.NewRequest(http.MethodPost, "/uploads/", body)
			req.Header.Set("Content-Type", ct)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandler_UploadServiceError(t *testing.T) {
	srv, svc := newServer(t, 1<<20)

	svc.EXPECT().Upload(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: missing account", statement.ErrInvalidUpload))

	body, ct := multipartBody(t, map[string]string{"client_id": uuid.New().String(), "bank": "bancoestado"}, "a.csv", cartola)

	req := httptest.NewRequest(http.MethodPost, "/uploads/", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing account")
}

func TestHandler_Preview(t *testing.T) {
	srv, _ := newServer(t, 1<<20)

	body, ct := multipartBody(t, map[string]string{
		"client_id": uuid.New().String(), "account_id": "cc-001", "bank": "bancoestado",
	}, "enero.csv", cartola)

	req := httptest.NewRequest(http.MethodPost, "/uploads/preview", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows []struct {
			Date    string `json:"date"`
			Amount  int64  `json:"amount"`
			Display string `json:"display"`
		} `json:"rows"`
		Skipped []struct {
			Line  int    `json:"line"`
			Field string `json:"field"`
		} `json:"skipped"`
		MovementsTotal int64 `json:"movements_total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "2026-01-15", resp.Rows[0].Date)
	assert.Equal(t, "-50.000", resp.Rows[0].Display)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, 4, resp.Skipped[0].Line)
	assert.Equal(t, "amount", resp.Skipped[0].Field)
	assert.Equal(t, int64(75_500), resp.MovementsTotal)
}

func TestHandler_PreviewUnreadableFile(t *testing.T) {
	srv, _ := newServer(t, 1<<20)

	body, ct := multipartBody(t, map[string]string{"client_id": uuid.New().String(), "bank": "santander"}, "enero.pdf", "garbage")

	req := httptest.NewRequest(http.MethodPost, "/uploads/preview", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandler_Get(t *testing.T) {
	srv, svc := newServer(t, 1<<20)
	id := uuid.New()

	svc.EXPECT().Get(gomock.Any(), id).Return(nil, statement.ErrUploadNotFound)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/"+id.String(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
