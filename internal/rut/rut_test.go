package rut_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/conciliador/internal/rut"
)

func TestNormalize(t *testing.T) {
	type testCase struct {
		name    string
		input   string
		want    string
		wantErr bool
	}

	tests := []testCase{
		{name: "Dotted", input: "76.086.428-5", want: "76086428-5"},
		{name: "Plain", input: "760864285", want: "76086428-5"},
		{name: "LowercaseK", input: "10.000.013-k", want: "10000013-K"},
		{name: "ZeroVerifier", input: "11.111.111-1", want: "11111111-1"},
		{name: "WrongVerifier", input: "76.086.428-4", wantErr: true},
		{name: "Garbage", input: "abc", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rut.Normalize(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, rut.ErrInvalid)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFind(t *testing.T) {
	got := rut.Find("TRANSF A 76.086.428-5 PROVEEDOR REF 76086428-5 Y 12.345.678-9")
	assert.Equal(t, []string{"76086428-5"}, got)
}

func TestFind_None(t *testing.T) {
	assert.Empty(t, rut.Find("COMPRA SUPERMERCADO 1234"))
}
