package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrMalformed = errors.New("malformed document")
)

// Type is the SII document kind.
type Type string

const (
	TypeFactura     Type = "factura"
	TypeBoleta      Type = "boleta"
	TypeNotaCredito Type = "nota_credito"
	TypeNotaDebito  Type = "nota_debito"
	TypeGuia        Type = "guia"
)

func (t Type) Valid() bool {
	switch t {
	case TypeFactura, TypeBoleta, TypeNotaCredito, TypeNotaDebito, TypeGuia:
		return true
	}

	return false
}

// Document is an accounting document issued to or by the client. The engine never writes them.
type Document struct {
	ID           uuid.UUID
	ClientID     uuid.UUID
	Type         Type
	Folio        int64
	EmissionDate time.Time
	IssuerRUT    string
	IssuerName   string
	Total        int64 // minor units, always positive
	Currency     string
}

// Validate rejects documents the matcher cannot score.
func (d *Document) Validate() error {
	switch {
	case !d.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrMalformed, d.Type)
	case d.Total <= 0:
		return fmt.Errorf("%w: total %d", ErrMalformed, d.Total)
	case d.EmissionDate.IsZero():
		return fmt.Errorf("%w: missing emission date", ErrMalformed)
	}

	return nil
}
