package matching_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/conciliador/internal/document"
	"github.com/MrJamesThe3rd/conciliador/internal/matching"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func factura(total int64, date time.Time) *document.Document {
	return &document.Document{
		ID:           uuid.New(),
		Type:         document.TypeFactura,
		Folio:        1001,
		EmissionDate: date,
		IssuerRUT:    "76.086.428-5",
		IssuerName:   "Comercial Sur Ltda",
		Total:        total,
		Currency:     "CLP",
	}
}

func creditNote(total int64, date time.Time) func() *document.Document {
	return func() *document.Document {
		d := factura(total, date)
		d.Type = document.TypeNotaCredito

		return d
	}
}

func payment(amount int64, date time.Time, desc string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:          uuid.New(),
		Date:        date,
		Description: desc,
		Amount:      amount,
		Currency:    "CLP",
	}
}

func TestMatcher_SameIssuerExactAmount(t *testing.T) {
	m := matching.NewMatcher(matching.DefaultConfig())

	tx := payment(-50_000, day(2026, 1, 15), "TRANSF A 76086428-5 PAGO FACTURA")
	doc := factura(50_000, day(2026, 1, 14))
	doc.IssuerName = "Inversiones Del Pacifico SpA"

	other := factura(50_000, day(2026, 2, 10))
	other.IssuerRUT = "11.111.111-1"
	other.IssuerName = "Otra Empresa"

	got, errs := m.Match(tx, []*document.Document{other, doc})
	require.Empty(t, errs)
	require.NotEmpty(t, got)

	top := got[0]
	assert.Equal(t, doc.ID, top.DocumentID)
	assert.GreaterOrEqual(t, top.Score, 0.9)
	assert.True(t, top.Has(matching.ReasonExactAmount))
	assert.True(t, top.Has(matching.ReasonSameIssuer))
	assert.True(t, top.Has(matching.ReasonDateProximity))
	assert.True(t, top.Has(matching.ReasonTypePlausible))
	assert.Equal(t, int64(0), top.AmountDiff)
	assert.Equal(t, -1, top.DayDiff)
}

func TestMatcher_NothingInRange(t *testing.T) {
	m := matching.NewMatcher(matching.DefaultConfig())

	tx := payment(-50_000, day(2026, 1, 15), "PAGO SERVICIO")
	doc := factura(999_999, day(2025, 6, 1))

	got, errs := m.Match(tx, []*document.Document{doc})
	assert.Empty(t, errs)
	assert.Empty(t, got)

	got, errs = m.Match(tx, nil)
	assert.Empty(t, errs)
	assert.Empty(t, got)
}

func TestMatcher_Signals(t *testing.T) {
	cfg := matching.DefaultConfig()
	cfg.MinScore = 0

	m := matching.NewMatcher(cfg)
	date := day(2026, 3, 10)

	type testCase struct {
		name       string
		tx         *transaction.Transaction
		doc        func() *document.Document
		wantScore  float64
		wantReason []matching.Reason
		notReason  []matching.Reason
	}

	tests := []testCase{
		{
			name:       "AllSignalsClampedToOne",
			tx:         payment(-80_000, date, "TRANSF COMERCIAL SUR LTDA 76.086.428-5"),
			doc:        func() *document.Document { return factura(80_000, date) },
			wantScore:  1,
			wantReason: []matching.Reason{matching.ReasonExactAmount, matching.ReasonSameDay, matching.ReasonSameIssuer, matching.ReasonSimilarName},
		},
		{
			name:       "NearAmountScaled",
			tx:         payment(-50_000, date, "PAGO"),
			doc:        func() *document.Document { return factura(50_020, date) },
			wantScore:  0.4 + 0.25,
			wantReason: []matching.Reason{matching.ReasonNearAmount, matching.ReasonSameDay},
			notReason:  []matching.Reason{matching.ReasonExactAmount},
		},
		{
			name:       "NearAmountFloor",
			tx:         payment(-50_000, date, "PAGO"),
			doc:        func() *document.Document { return factura(49_910, date) },
			wantScore:  0.25 + 0.25,
			wantReason: []matching.Reason{matching.ReasonNearAmount},
		},
		{
			name: "CurrencyMismatchHasNoAmountSignal",
			tx:   payment(-50_000, date, "PAGO"),
			doc: func() *document.Document {
				d := factura(50_000, date)
				d.Currency = "USD"
				return d
			},
			wantScore: 0.25,
			notReason: []matching.Reason{matching.ReasonExactAmount, matching.ReasonNearAmount},
		},
		{
			name:       "CreditNoteAgainstDebitIsCapped",
			tx:         payment(-50_000, date, "PAGO"),
			doc:        creditNote(50_000, date),
			wantScore:  0.3,
			wantReason: []matching.Reason{matching.ReasonTypeMismatch, matching.ReasonExactAmount},
			notReason:  []matching.Reason{matching.ReasonTypePlausible},
		},
		{
			name:       "InvoiceAgainstCreditIsCapped",
			tx:         payment(50_000, date, "ABONO"),
			doc:        func() *document.Document { return factura(50_000, date) },
			wantScore:  0.3,
			wantReason: []matching.Reason{matching.ReasonTypeMismatch},
		},
		{
			name:       "CreditNoteAgainstCredit",
			tx:         payment(50_000, date, "DEVOLUCION"),
			doc:        creditNote(50_000, date),
			wantScore:  0.75,
			wantReason: []matching.Reason{matching.ReasonTypePlausible},
		},
		{
			name:       "OutsideDateWindow",
			tx:         payment(-50_000, date, "PAGO"),
			doc:        func() *document.Document { return factura(50_000, date.AddDate(0, 0, 31)) },
			wantScore:  0.5,
			notReason:  []matching.Reason{matching.ReasonSameDay, matching.ReasonDateProximity},
			wantReason: []matching.Reason{matching.ReasonExactAmount},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := m.Match(tt.tx, []*document.Document{tt.doc()})
			require.Empty(t, errs)
			require.Len(t, got, 1)

			assert.InDelta(t, tt.wantScore, got[0].Score, 1e-9)
			assert.GreaterOrEqual(t, got[0].Score, 0.0)
			assert.LessOrEqual(t, got[0].Score, 1.0)

			for _, r := range tt.wantReason {
				assert.True(t, got[0].Has(r), "missing %s in %v", r, got[0].Reasons)
			}

			for _, r := range tt.notReason {
				assert.False(t, got[0].Has(r), "unexpected %s in %v", r, got[0].Reasons)
			}
		})
	}
}

func TestMatcher_TypeMismatchFallsBelowMinScore(t *testing.T) {
	m := matching.NewMatcher(matching.DefaultConfig())
	date := day(2026, 3, 10)

	got, _ := m.Match(payment(50_000, date, "ABONO"), []*document.Document{factura(50_000, date)})
	assert.Empty(t, got)
}

func TestMatcher_Ranking(t *testing.T) {
	m := matching.NewMatcher(matching.DefaultConfig())
	date := day(2026, 5, 20)
	tx := payment(-120_000, date, "PAGO PROVEEDOR")

	far := factura(120_000, date.AddDate(0, 0, 12))
	near := factura(120_000, date.AddDate(0, 0, 2))
	same := factura(120_000, date)
	off := factura(120_010, date)

	got, _ := m.Match(tx, []*document.Document{far, off, near, same})
	require.Len(t, got, 4)

	ids := make([]uuid.UUID, len(got))
	for i, c := range got {
		ids[i] = c.DocumentID
	}

	assert.Equal(t, []uuid.UUID{same.ID, near.ID, off.ID, far.ID}, ids)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestMatcher_TiesBreakByDocumentID(t *testing.T) {
	m := matching.NewMatcher(matching.DefaultConfig())
	date := day(2026, 5, 20)
	tx := payment(-10_000, date, "PAGO")

	a := factura(10_000, date)
	b := factura(10_000, date)
	a.ID = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b.ID = uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	first, _ := m.Match(tx, []*document.Document{b, a})
	second, _ := m.Match(tx, []*document.Document{a, b})

	require.Len(t, first, 2)
	assert.Equal(t, a.ID, first[0].DocumentID)
	assert.Equal(t, first, second)
}

func TestMatcher_SkipsMalformedDocuments(t *testing.T) {
	m := matching.NewMatcher(matching.DefaultConfig())
	date := day(2026, 1, 15)

	good := factura(50_000, date)
	noTotal := factura(0, date)
	badType := factura(50_000, date)
	badType.Type = "cheque"
	noDate := factura(50_000, time.Time{})

	got, errs := m.Match(payment(-50_000, date, "PAGO"), []*document.Document{noTotal, good, badType, noDate})

	require.Len(t, got, 1)
	assert.Equal(t, good.ID, got[0].DocumentID)

	require.Len(t, errs, 3)
	assert.Equal(t, noTotal.ID, errs[0].DocumentID)
	assert.ErrorIs(t, errs[0], document.ErrMalformed)
	assert.ErrorIs(t, errs[1], document.ErrMalformed)
}

func TestMatcher_Deterministic(t *testing.T) {
	m := matching.NewMatcher(matching.DefaultConfig())
	date := day(2026, 7, 1)
	tx := payment(-75_000, date, "TRANSF A COMERCIAL SUR 76086428-5")

	docs := []*document.Document{
		factura(75_000, date.AddDate(0, 0, -3)),
		factura(75_010, date.AddDate(0, 0, 1)),
		factura(74_950, date),
	}

	first, _ := m.Match(tx, docs)
	for range 5 {
		again, _ := m.Match(tx, docs)
		assert.Equal(t, first, again)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *matching.Config)
		wantErr bool
	}{
		{name: "Default", mutate: func(*matching.Config) {}},
		{name: "NegativeWindow", mutate: func(c *matching.Config) { c.DateWindowDays = -1 }, wantErr: true},
		{name: "ZeroMinScore", mutate: func(c *matching.Config) { c.MinScore = 0 }, wantErr: true},
		{name: "ConfidentBelowMin", mutate: func(c *matching.Config) { c.ConfidentScore = 0.2 }, wantErr: true},
		{name: "CapAboveMin", mutate: func(c *matching.Config) { c.PlausibleCap = 0.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := matching.DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
		})
	}
}
