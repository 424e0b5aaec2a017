package statement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/conciliador/internal/statement"
)

func TestService_Upload(t *testing.T) {
	clientID := uuid.New()

	type testCase struct {
		name      string
		params    statement.UploadParams
		setupMock func(m *statement.MockRepository)
		wantErr   error
	}

	valid := statement.UploadParams{
		ClientID:  clientID,
		AccountID: "cc-001",
		Bank:      statement.BankEstado,
		Filename:  "enero.csv",
		Content:   []byte("Fecha;Descripción;Monto\n"),
	}

	tests := []testCase{
		{
			name:   "Success",
			params: valid,
			setupMock: func(m *statement.MockRepository) {
				m.EXPECT().CreateUpload(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, u *statement.Upload) error {
						assert.Equal(t, statement.UploadPending, u.Status)
						u.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name: "UnknownBank",
			params: statement.UploadParams{
				AccountID: "cc-001", Bank: "itau", Content: []byte("x"),
			},
			wantErr: statement.ErrInvalidUpload,
		},
		{
			name: "EmptyContent",
			params: statement.UploadParams{
				AccountID: "cc-001", Bank: statement.BankBCI,
			},
			wantErr: statement.ErrInvalidUpload,
		},
		{
			name: "MissingAccount",
			params: statement.UploadParams{
				Bank: statement.BankBCI, Content: []byte("%PDF"),
			},
			wantErr: statement.ErrInvalidUpload,
		},
		{
			name:   "RepoError",
			params: valid,
			setupMock: func(m *statement.MockRepository) {
				m.EXPECT().CreateUpload(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := statement.NewMockRepository(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := statement.NewService(repo).Upload(context.Background(), tt.params)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
		})
	}
}

func TestService_Pending(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := statement.NewMockRepository(ctrl)
	clientID := uuid.New()

	repo.EXPECT().ListUploads(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f statement.UploadFilter) ([]*statement.Upload, error) {
			require.NotNil(t, f.Status)
			assert.Equal(t, statement.UploadPending, *f.Status)
			assert.Equal(t, clientID, *f.ClientID)
			assert.Equal(t, "cc-001", f.AccountID)

			return []*statement.Upload{{ID: uuid.New()}}, nil
		})

	got, err := statement.NewService(repo).Pending(context.Background(), clientID, "cc-001")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUpload_Reconciles(t *testing.T) {
	tests := []struct {
		name    string
		opening *int64
		closing *int64
		total   *int64
		want    bool
	}{
		{name: "Balanced", opening: new(int64(1_000_000)), closing: new(int64(1_150_000)), total: new(int64(150_000)), want: true},
		{name: "Off", opening: new(int64(1_000_000)), closing: new(int64(1_150_000)), total: new(int64(149_000)), want: false},
		{name: "NoOpening", closing: new(int64(1_150_000)), total: new(int64(1)), want: true},
		{name: "NotImported", opening: new(int64(0)), closing: new(int64(1)), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &statement.Upload{OpeningBalance: tt.opening, ClosingBalance: tt.closing, MovementsTotal: tt.total}
			assert.Equal(t, tt.want, u.Reconciles())
		})
	}
}
