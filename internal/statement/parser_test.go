package statement_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/conciliador/internal/statement"
)

func TestParse_BancoEstadoCuenta(t *testing.T) {
	csv := `BancoEstado - Cartola Cuenta Corriente
Titular;COMERCIAL ANDES SPA
Cuenta;29100012345
Saldo inicial;1.250.000

Fecha;Descripción;Monto;Saldo
15/01/2026;PAGO PROVEEDOR 76.086.428-5;-50.000;1.200.000
16/01/2026;ABONO TRANSFERENCIA;125.500;1.325.500
Saldo final;1.325.500
`

	st, err := statement.Parse(statement.BankEstado, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, st.Rows, 2)

	assert.Equal(t, "15/01/2026", st.Rows[0].Date)
	assert.Equal(t, "PAGO PROVEEDOR 76.086.428-5", st.Rows[0].Description)
	assert.Equal(t, "-50.000", st.Rows[0].Amount)
	assert.Equal(t, "1.200.000", st.Rows[0].Balance)
	assert.Equal(t, 7, st.Rows[0].Line)

	assert.Equal(t, "125.500", st.Rows[1].Amount)

	assert.Equal(t, "1.250.000", st.OpeningBalance)
	assert.Equal(t, "1.325.500", st.ClosingBalance)
}

func TestParse_BancoEstadoCuentaRUT(t *testing.T) {
	csv := `Fecha ;Detalle ;Cargos ;Abonos ;Saldo ;
02/01/2026 ;COMPRA SUPERMERCADO ;12.990 ; ;87.010 ;
03/01/2026 ;DEPOSITO ; ;20000 ;107.010 ;
`

	st, err := statement.Parse(statement.BankEstado, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, st.Rows, 2)

	assert.Equal(t, "-12.990", st.Rows[0].Amount)
	assert.Equal(t, "20.000", st.Rows[1].Amount)
}

func TestParse_BancoChile(t *testing.T) {
	csv := `Cartola Banco de Chile
Fecha,Descripción,Cargo,Abono,Saldo
05/01/2026,"PAGO FACTURA 1234",0,"",950000
06/01/2026,"TRASPASO DE TERCEROS",,"200000",1150000
07/01/2026,"COMISION MANTENCION","4500","0",1145500
`

	st, err := statement.Parse(statement.BankChile, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, st.Rows, 3)

	assert.Equal(t, "", st.Rows[0].Amount, "row with no figures is left for the normalizer to reject")
	assert.Equal(t, "200000", st.Rows[1].Amount)
	assert.Equal(t, "-4500", st.Rows[2].Amount)
}

func TestParse_GenericSniffsDelimiter(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "Comma", csv: "fecha,descripcion,monto\n2026-01-15,PAGO,-50000\n"},
		{name: "Semicolon", csv: "fecha;descripcion;monto;saldo\n2026-01-15;PAGO;-50000;100.000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := statement.Parse(statement.BankGeneric, strings.NewReader(tt.csv))
			require.NoError(t, err)
			require.Len(t, st.Rows, 1)
			assert.Equal(t, "PAGO", st.Rows[0].Description)
		})
	}
}

func TestParse_Windows1252(t *testing.T) {
	utf8CSV := "Fecha;Descripción;Monto\n15/01/2026;CAFÉ ÑUÑOA;-3.500\n"

	latin1, err := charmap.Windows1252.NewEncoder().Bytes([]byte(utf8CSV))
	require.NoError(t, err)

	st, err := statement.Parse(statement.BankEstado, bytes.NewReader(latin1))
	require.NoError(t, err)
	require.Len(t, st.Rows, 1)

	assert.Equal(t, "CAFÉ ÑUÑOA", st.Rows[0].Description)
}

func TestParse_DifferentColumnOrder(t *testing.T) {
	csv := `Monto;Descripción;Fecha;Otro
-10.000;ORDEN;30/01/2026;XXX
`

	st, err := statement.Parse(statement.BankEstado, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, st.Rows, 1)

	assert.Equal(t, "ORDEN", st.Rows[0].Description)
	assert.Equal(t, "-10.000", st.Rows[0].Amount)
}

func TestParse_KeepsRowsWithUnreadableDates(t *testing.T) {
	csv := `fecha;descripcion;monto
15/01/2026;PAGO PROVEEDOR;-50000
15-ene-2026;CARGO SIN FECHA LEGIBLE;-1000
16/01/2026;ABONO;20000
Total;;-31000
`

	st, err := statement.Parse(statement.BankGeneric, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, st.Rows, 3)

	assert.Equal(t, "15-ene-2026", st.Rows[1].Date)
	assert.Equal(t, "-1000", st.Rows[1].Amount)
	assert.Equal(t, 3, st.Rows[1].Line)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		bank     statement.Bank
		input    string
		wantKind statement.ErrorKind
	}{
		{name: "UnknownBank", bank: "nubank", input: "x", wantKind: statement.UnsupportedFormat},
		{name: "EmptyFile", bank: statement.BankEstado, input: "", wantKind: statement.EmptyStatement},
		{name: "BlankFile", bank: statement.BankGeneric, input: "  \n\n", wantKind: statement.EmptyStatement},
		{name: "NoHeader", bank: statement.BankGeneric, input: "hola,mundo\n1,2\n", wantKind: statement.UnsupportedFormat},
		{name: "HeaderOnly", bank: statement.BankEstado, input: "Fecha;Descripción;Monto\n", wantKind: statement.EmptyStatement},
		{name: "NotAPDF", bank: statement.BankSantander, input: "Fecha;Descripción;Monto\n", wantKind: statement.CorruptFile},
		{name: "EmptyPDF", bank: statement.BankBCI, input: "", wantKind: statement.EmptyStatement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := statement.Parse(tt.bank, strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Nil(t, st)

			var pe *statement.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantKind, pe.Kind)
			assert.Equal(t, tt.bank, pe.Bank)
			assert.True(t, statement.IsKind(err, tt.wantKind))
		})
	}
}

func TestParse_Deterministic(t *testing.T) {
	csv := "fecha,descripcion,monto\n2026-01-15,PAGO,-50000\n2026-01-16,ABONO,1000\n"

	a, err := statement.Parse(statement.BankGeneric, strings.NewReader(csv))
	require.NoError(t, err)

	b, err := statement.Parse(statement.BankGeneric, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
