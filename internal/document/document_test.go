package document_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/conciliador/internal/document"
)

func TestDocument_Validate(t *testing.T) {
	day := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		doc     document.Document
		wantErr bool
	}{
		{name: "Valid", doc: document.Document{Type: document.TypeFactura, Total: 50000, EmissionDate: day}},
		{name: "UnknownType", doc: document.Document{Type: "recibo", Total: 50000, EmissionDate: day}, wantErr: true},
		{name: "ZeroTotal", doc: document.Document{Type: document.TypeBoleta, EmissionDate: day}, wantErr: true},
		{name: "NoDate", doc: document.Document{Type: document.TypeGuia, Total: 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, document.ErrMalformed)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_Pool(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := document.NewMockRepository(ctrl)
	clientID := uuid.New()
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().FindCandidates(gomock.Any(), document.CandidateQuery{
		ClientID: clientID,
		From:     time.Date(2025, 12, 16, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		MinTotal: 0,
		MaxTotal: 150,
	}).Return([]*document.Document{{ID: uuid.New()}}, nil)

	got, err := document.NewService(repo).Pool(context.Background(), clientID, day, 50, 100, 30)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
