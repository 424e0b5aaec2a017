package normalize_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/conciliador/internal/normalize"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
)

func opts() normalize.Options {
	return normalize.Options{
		ClientID:  uuid.MustParse("3f1c2c3a-4b7e-4d5a-9a43-0e6f3b8f7a10"),
		AccountID: "cc-001",
		Bank:      statement.BankEstado,
	}
}

func TestNormalize_DuplicateRowCollapses(t *testing.T) {
	var rows []statement.RawRow

	for i := 1; i <= 9; i++ {
		rows = append(rows, statement.RawRow{
			Line:        i,
			Date:        fmt.Sprintf("%02d/01/2026", i),
			Description: fmt.Sprintf("PAGO PROVEEDOR %d", i),
			Amount:      fmt.Sprintf("-%d.000", i*10),
		})
	}

	dup := rows[4]
	dup.Line = 10
	rows = append(rows, dup)

	res := normalize.Normalize(opts(), rows)

	assert.Len(t, res.Records, 9)
	assert.Equal(t, 1, res.Duplicates)
	assert.Empty(t, res.Skipped)
}

func TestNormalize_Record(t *testing.T) {
	rows := []statement.RawRow{{
		Line:        7,
		Date:        "15/01/2026",
		Description: "  PAGO   Compañía  Eléctrica ",
		Amount:      "-$ 50.000",
	}}

	res := normalize.Normalize(opts(), rows)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, int64(-50000), rec.Amount)
	assert.Equal(t, "CLP", rec.Currency)
	assert.Equal(t, "  PAGO   Compañía  Eléctrica ", rec.Description)
	assert.Equal(t, "pago compania electrica", rec.NormalizedDescription)
	assert.Equal(t, "cc-001", rec.AccountID)
	assert.Equal(t, normalize.DedupKey(opts().ClientID, "cc-001", rec.Date, -50000, "pago compania electrica"), rec.DedupKey)
}

func TestDedupKey_ScopedToClient(t *testing.T) {
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	a := normalize.DedupKey(uuid.New(), "cc-001", date, -50000, "pago")
	b := normalize.DedupKey(uuid.New(), "cc-001", date, -50000, "pago")

	assert.NotEqual(t, a, b)
}

func TestNormalize_SkipsBadRows(t *testing.T) {
	rows := []statement.RawRow{
		{Line: 2, Date: "31/02/2026", Description: "FECHA IMPOSIBLE", Amount: "-1000"},
		{Line: 3, Date: "01/02/2026", Description: "SIN MONTO", Amount: ""},
		{Line: 4, Date: "01/02/2026", Description: "CERO", Amount: "0"},
		{Line: 5, Date: "01/02/2026", Description: "  ", Amount: "1.000"},
		{Line: 6, Date: "01/02/2026", Description: "OK", Amount: "1.000"},
		{Line: 7, Date: "01/02/2026", Description: "LETRAS", Amount: "mil"},
	}

	res := normalize.Normalize(opts(), rows)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "OK", res.Records[0].Description)

	require.Len(t, res.Skipped, 5)

	got := make(map[int]string, len(res.Skipped))
	for _, e := range res.Skipped {
		got[e.Line] = e.Field
	}

	assert.Equal(t, map[int]string{2: "date", 3: "amount", 4: "amount", 5: "description", 7: "amount"}, got)
	assert.ErrorIs(t, res.Skipped[0], normalize.ErrBadDate)
}

func TestNormalize_DedupKeyStableAcrossWhitespace(t *testing.T) {
	a := normalize.Normalize(opts(), []statement.RawRow{{Date: "15/01/2026", Description: "PAGO  LUZ", Amount: "-100"}})
	b := normalize.Normalize(opts(), []statement.RawRow{{Date: "2026-01-15", Description: "pago luz", Amount: "-100"}})

	require.Len(t, a.Records, 1)
	require.Len(t, b.Records, 1)
	assert.Equal(t, a.Records[0].DedupKey, b.Records[0].DedupKey)
}

func TestAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		format   normalize.NumberFormat
		currency string
		want     int64
		wantErr  error
	}{
		{name: "CLPThousands", input: "1.234.567", format: normalize.FormatChilean, currency: "CLP", want: 1234567},
		{name: "CLPNegative", input: "-50.000", format: normalize.FormatChilean, currency: "CLP", want: -50000},
		{name: "TrailingMinus", input: "20.000-", format: normalize.FormatChilean, currency: "CLP", want: -20000},
		{name: "Parentheses", input: "(4.500)", format: normalize.FormatChilean, currency: "CLP", want: -4500},
		{name: "CurrencySymbol", input: "$ 9.990", format: normalize.FormatChilean, currency: "CLP", want: 9990},
		{name: "CLPZeroDecimals", input: "1.000,00", format: normalize.FormatChilean, currency: "CLP", want: 1000},
		{name: "CLPFractionRejected", input: "1.234,56", format: normalize.FormatChilean, currency: "CLP", wantErr: normalize.ErrBadAmount},
		{name: "USDCommaDecimals", input: "1.234,56", format: normalize.FormatChilean, currency: "USD", want: 123456},
		{name: "USDFormat", input: "US$1,234.56", format: normalize.FormatUS, currency: "USD", want: 123456},
		{name: "UFHundredths", input: "35,5", format: normalize.FormatChilean, currency: "UF", want: 3550},
		{name: "AutoThousands", input: "50.000", format: normalize.FormatAuto, currency: "CLP", want: 50000},
		{name: "AutoUSDecimals", input: "12.50", format: normalize.FormatAuto, currency: "USD", want: 1250},
		{name: "AutoMixed", input: "1,234.50", format: normalize.FormatAuto, currency: "USD", want: 123450},
		{name: "Garbage", input: "abc", format: normalize.FormatChilean, currency: "CLP", wantErr: normalize.ErrBadAmount},
		{name: "Empty", input: " ", format: normalize.FormatChilean, currency: "CLP", wantErr: normalize.ErrEmpty},
		{name: "Overflow", input: "99999999999999999999", format: normalize.FormatChilean, currency: "CLP", wantErr: normalize.ErrBadAmount},
		{name: "OverflowAfterShift", input: "-92.233.720.368.547.758,08", format: normalize.FormatChilean, currency: "USD", wantErr: normalize.ErrBadAmount},
		{name: "LargestCLP", input: "-9.223.372.036.854.775.807", format: normalize.FormatChilean, currency: "CLP", want: -9223372036854775807},
		{name: "UnknownCurrency", input: "1", format: normalize.FormatChilean, currency: "XYZ", wantErr: normalize.ErrUnknownCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalize.Amount(tt.input, tt.format, tt.currency)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDate(t *testing.T) {
	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"15/01/2026", "15-01-2026", "2026-01-15", "15/01/26", "15/1/2026", " 15/01/2026 "} {
		t.Run(in, func(t *testing.T) {
			got, err := normalize.Date(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := normalize.Date("enero 15")
	assert.ErrorIs(t, err, normalize.ErrBadDate)
}

func TestBalance(t *testing.T) {
	got := normalize.Balance(opts(), "$1.150.000")
	require.NotNil(t, got)
	assert.Equal(t, int64(1150000), *got)

	assert.Nil(t, normalize.Balance(opts(), ""))
	assert.Nil(t, normalize.Balance(opts(), "n/a"))
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		amount   int64
		currency string
		want     string
	}{
		{amount: 0, currency: "CLP", want: "0"},
		{amount: 999, currency: "CLP", want: "999"},
		{amount: 1_250_000, currency: "CLP", want: "1.250.000"},
		{amount: -50_000, currency: "CLP", want: "-50.000"},
		{amount: 123_456, currency: "USD", want: "1.234,56"},
		{amount: -5, currency: "USD", want: "-0,05"},
		{amount: 3_812_45, currency: "UF", want: "3.812,45"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.Display(tt.amount, tt.currency))
		})
	}
}

func TestParseFile(t *testing.T) {
	csv := `BancoEstado - Cartola Cuenta Corriente
Saldo inicial;1.250.000

Fecha;Descripción;Monto;Saldo
15/01/2026;PAGO PROVEEDOR 76.086.428-5;-50.000;1.200.000
16/01/2026;ABONO TRANSFERENCIA;125.500;1.325.500
17/01/2026;COMISION;;1.325.500
Saldo final;1.325.500
`

	f, err := normalize.ParseFile(opts(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Len(t, f.Records, 2)
	assert.Len(t, f.Skipped, 1)
	assert.Equal(t, int64(75_500), f.MovementsTotal)
	require.NotNil(t, f.OpeningBalance)
	require.NotNil(t, f.ClosingBalance)
	assert.Equal(t, *f.ClosingBalance, *f.OpeningBalance+f.MovementsTotal)
}

func TestParseFile_ReportsUnreadableDate(t *testing.T) {
	csv := "fecha;descripcion;monto\n15/01/2026;PAGO;-50000\n15-ene-2026;CARGO;-1000\n16/01/2026;ABONO;20000\n"

	o := opts()
	o.Bank = statement.BankGeneric

	f, err := normalize.ParseFile(o, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Len(t, f.Records, 2)
	require.Len(t, f.Skipped, 1)
	assert.ErrorIs(t, f.Skipped[0], normalize.ErrBadDate)
	assert.Equal(t, 3, f.Skipped[0].Line)
}

func TestParseFile_Unreadable(t *testing.T) {
	o := opts()
	o.Bank = statement.BankSantander

	_, err := normalize.ParseFile(o, strings.NewReader("not a pdf"))

	var pe *statement.ParseError
	assert.True(t, errors.As(err, &pe))
}
