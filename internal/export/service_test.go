package export_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/conciliador/internal/document"
	"github.com/MrJamesThe3rd/conciliador/internal/export"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

func fixture() ([]*transaction.Transaction, *document.Document) {
	doc := &document.Document{
		ID:           uuid.New(),
		Type:         document.TypeFactura,
		Folio:        1234,
		EmissionDate: time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC),
		IssuerRUT:    "76.086.428-5",
		IssuerName:   "Proveedora Andes SpA",
		Total:        50_000,
		Currency:     "CLP",
	}

	category := "proveedores"
	txs := []*transaction.Transaction{
		{
			ID: uuid.New(), Date: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), Description: "PAGO PROVEEDOR",
			Amount: -50_000, Currency: "CLP", Category: &category, Status: transaction.StatusMatched, DocumentID: &doc.ID,
		},
		{
			ID: uuid.New(), Date: time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), Description: "ABONO TRANSFERENCIA",
			Amount: 1_250_000, Status: transaction.StatusUnmatched,
		},
	}

	return txs, doc
}

func TestService_Build(t *testing.T) {
	ctrl := gomock.NewController(t)
	txs := export.NewMockTransactions(ctrl)
	docs := export.NewMockDocuments(ctrl)

	movements, doc := fixture()
	filter := transaction.ListFilter{AccountID: "cc-001"}

	txs.EXPECT().List(gomock.Any(), filter).Return(movements, nil)
	docs.EXPECT().Get(gomock.Any(), doc.ID).Return(doc, nil)

	report, err := export.NewService(txs, docs).Build(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	assert.Equal(t, doc, report.Rows[0].Document)
	assert.Nil(t, report.Rows[1].Document)
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Matched)
	assert.Equal(t, int64(50_000), report.Summary.ReconciledAmount)
}

func TestService_Build_Errors(t *testing.T) {
	tests := []struct {
		name    string
		listErr error
		docErr  error
		wantErr bool
	}{
		{name: "ListFails", listErr: errors.New("db down"), wantErr: true},
		{name: "DocumentFails", docErr: errors.New("db down"), wantErr: true},
		{name: "DocumentGone", docErr: document.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			txs := export.NewMockTransactions(ctrl)
			docs := export.NewMockDocuments(ctrl)

			movements, _ := fixture()

			if tt.listErr != nil {
				txs.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, tt.listErr)
			} else {
				txs.EXPECT().List(gomock.Any(), gomock.Any()).Return(movements, nil)
				docs.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, tt.docErr)
			}

			report, err := export.NewService(txs, docs).Build(context.Background(), transaction.ListFilter{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Nil(t, report.Rows[0].Document)
		})
	}
}

func TestReport_WriteCSV(t *testing.T) {
	movements, doc := fixture()
	report := &export.Report{Rows: []export.Row{
		{Transaction: movements[0], Document: doc},
		{Transaction: movements[1]},
	}}

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf))

	r := csv.NewReader(&buf)
	r.Comma = ';'

	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"15/01/2026", "PAGO PROVEEDOR", "-50.000", "CLP", "proveedores", "matched",
		"factura", "1234", "76.086.428-5", "Proveedora Andes SpA", "50.000",
	}, records[1])
	assert.Equal(t, []string{
		"16/01/2026", "ABONO TRANSFERENCIA", "1.250.000", "CLP", "", "unmatched",
		"", "", "", "", "",
	}, records[2])
}

func TestReport_SummaryText(t *testing.T) {
	movements, _ := fixture()
	report := &export.Report{
		Rows:    []export.Row{{Transaction: movements[0]}, {Transaction: movements[1]}},
		Summary: transaction.Summarize(movements),
	}

	text := report.SummaryText()

	assert.Contains(t, text, "Movimientos: 2")
	assert.Contains(t, text, "Sin documento: 1")
	assert.Contains(t, text, "* 2026-01-16 | ABONO TRANSFERENCIA | 1.250.000 | unmatched")
	assert.NotContains(t, text, "PAGO PROVEEDOR")
}

func TestReport_WriteZip(t *testing.T) {
	movements, _ := fixture()
	report := &export.Report{Rows: []export.Row{{Transaction: movements[1]}}}

	var buf bytes.Buffer
	require.NoError(t, report.WriteZip(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	names := []string{zr.File[0].Name, zr.File[1].Name}
	assert.Equal(t, []string{"conciliacion.csv", "resumen.txt"}, names)

	f, err := zr.File[0].Open()
	require.NoError(t, err)
	defer f.Close()

	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Contains(t, string(content), "ABONO TRANSFERENCIA")
}
