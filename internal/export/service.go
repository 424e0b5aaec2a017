package export

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/document"
	"github.com/MrJamesThe3rd/conciliador/internal/normalize"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=export
type Transactions interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

type Documents interface {
	Get(ctx context.Context, id uuid.UUID) (*document.Document, error)
}

// Row is one movement of the report with the document it was reconciled against, if any.
type Row struct {
	Transaction *transaction.Transaction
	Document    *document.Document
}

// Report is the reconciliation worksheet of a period handed to the accountant.
type Report struct {
	Rows    []Row
	Summary transaction.Summary
}

// Service builds period reports.
type Service struct {
	transactions Transactions
	documents    Documents
}

func NewService(txs Transactions, docs Documents) *Service {
	return &Service{transactions: txs, documents: docs}
}

// Build loads the movements matching filter and the documents linked to them.
func (s *Service) Build(ctx context.Context, filter transaction.ListFilter) (*Report, error) {
	txs, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	report := &Report{
		Rows:    make([]Row, 0, len(txs)),
		Summary: transaction.Summarize(txs),
	}

	docs := make(map[uuid.UUID]*document.Document)

	for _, tx := range txs {
		row := Row{Transaction: tx}

		if tx.DocumentID != nil {
			doc, ok := docs[*tx.DocumentID]
			if !ok {
				doc, err = s.documents.Get(ctx, *tx.DocumentID)
				if err != nil && !errors.Is(err, document.ErrNotFound) {
					return nil, fmt.Errorf("loading document for transaction %s: %w", tx.ID, err)
				}

				docs[*tx.DocumentID] = doc
			}

			row.Document = doc
		}

		report.Rows = append(report.Rows, row)
	}

	return report, nil
}

var header = []string{
	"fecha", "descripcion", "monto", "moneda", "categoria", "estado",
	"tipo_documento", "folio", "rut_emisor", "razon_social", "total_documento",
}

// WriteCSV writes the rows as a semicolon separated sheet, which is what spreadsheet
// software in Chile opens without an import dialog.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range r.Rows {
		tx := row.Transaction

		category := ""
		if tx.Category != nil {
			category = *tx.Category
		}

		currency := currencyOf(tx)

		record := []string{
			tx.Date.Format("02/01/2006"),
			tx.Description,
			normalize.Display(tx.Amount, currency),
			currency,
			category,
			string(tx.Status),
			"", "", "", "", "",
		}

		if d := row.Document; d != nil {
			record[6] = string(d.Type)
			record[7] = strconv.FormatInt(d.Folio, 10)
			record[8] = d.IssuerRUT
			record[9] = d.IssuerName
			record[10] = normalize.Display(d.Total, d.Currency)
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// SummaryText renders the period totals and the movements still open, one per line.
func (r *Report) SummaryText() string {
	var sb strings.Builder

	s := r.Summary
	fmt.Fprintf(&sb, "Movimientos: %d\n", s.Total)
	fmt.Fprintf(&sb, "Conciliados: %d (%d automaticos o confirmados, %d manuales)\n", s.Matched+s.Manual, s.Matched, s.Manual)
	fmt.Fprintf(&sb, "Por revisar: %d\n", s.Pending+s.Partial)
	fmt.Fprintf(&sb, "Sin documento: %d\n", s.Unmatched)
	fmt.Fprintf(&sb, "Monto conciliado: %s de %s (%.1f%%)\n",
		normalize.Display(s.ReconciledAmount, "CLP"), normalize.Display(s.TotalAmount, "CLP"), s.Rate)

	open := false

	for _, row := range r.Rows {
		tx := row.Transaction
		if tx.Status.Linked() {
			continue
		}

		if !open {
			sb.WriteString("\nPendientes:\n")

			open = true
		}

		fmt.Fprintf(&sb, "* %s | %s | %s | %s\n",
			tx.Date.Format("2006-01-02"), tx.Description, normalize.Display(tx.Amount, currencyOf(tx)), tx.Status)
	}

	return sb.String()
}

func currencyOf(tx *transaction.Transaction) string {
	if tx.Currency == "" {
		return "CLP"
	}

	return tx.Currency
}

// WriteZip bundles the sheet and the summary.
func (r *Report) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)

	sheet, err := zw.Create("conciliacion.csv")
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	if err := r.WriteCSV(sheet); err != nil {
		return err
	}

	summary, err := zw.Create("resumen.txt")
	if err != nil {
		return fmt.Errorf("creating summary: %w", err)
	}

	if _, err := io.WriteString(summary, r.SummaryText()); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	return zw.Close()
}
