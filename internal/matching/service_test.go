package matching_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/conciliador/internal/document"
	"github.com/MrJamesThe3rd/conciliador/internal/matching"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

func TestService_MatchTransaction(t *testing.T) {
	date := day(2026, 1, 15)
	clientID := uuid.New()

	type testCase struct {
		name       string
		pool       func() []*document.Document
		poolErr    error
		wantStatus transaction.Status
		wantLen    int
		wantErr    bool
	}

	tests := []testCase{
		{
			name:       "ConfidentIsPending",
			pool:       func() []*document.Document { return []*document.Document{factura(50_000, date)} },
			wantStatus: transaction.StatusPending,
			wantLen:    1,
		},
		{
			name:       "WeakIsPartial",
			pool:       func() []*document.Document { return []*document.Document{factura(50_000, date.AddDate(0, 0, 45))} },
			wantStatus: transaction.StatusPartial,
			wantLen:    1,
		},
		{
			name:       "NoCandidatesIsUnmatched",
			pool:       func() []*document.Document { return nil },
			wantStatus: transaction.StatusUnmatched,
		},
		{
			name:    "PoolError",
			poolErr: errors.New("db down"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := matching.NewMockRepository(ctrl)
			docs := matching.NewMockDocumentSource(ctrl)

			tx := payment(-50_000, date, "PAGO PROVEEDOR")
			tx.ClientID = clientID

			var pool []*document.Document
			if tt.pool != nil {
				pool = tt.pool()
			}

			docs.EXPECT().Pool(gomock.Any(), clientID, date, int64(50_000), int64(100), 30).Return(pool, tt.poolErr)

			if !tt.wantErr {
				repo.EXPECT().ReplaceCandidates(gomock.Any(), tx.ID, gomock.Len(tt.wantLen)).Return(nil)
			}

			got, err := matching.NewService(repo, docs, matching.DefaultConfig()).MatchTransaction(context.Background(), tx)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Len(t, got.Candidates, tt.wantLen)

			_, ok := got.Top()
			assert.Equal(t, tt.wantLen > 0, ok)
		})
	}
}

func TestService_MatchTransaction_ReportsMalformed(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := matching.NewMockRepository(ctrl)
	docs := matching.NewMockDocumentSource(ctrl)

	date := day(2026, 1, 15)
	bad := factura(0, date)

	docs.EXPECT().Pool(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*document.Document{bad}, nil)
	repo.EXPECT().ReplaceCandidates(gomock.Any(), gomock.Any(), gomock.Len(0)).Return(nil)

	got, err := matching.NewService(repo, docs, matching.DefaultConfig()).
		MatchTransaction(context.Background(), payment(-50_000, date, "PAGO"))
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusUnmatched, got.Status)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, bad.ID, got.Skipped[0].DocumentID)
}

func TestService_MatchTransaction_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := matching.NewMockRepository(ctrl)
	docs := matching.NewMockDocumentSource(ctrl)

	docs.EXPECT().Pool(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	repo.EXPECT().ReplaceCandidates(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("db error"))

	_, err := matching.NewService(repo, docs, matching.DefaultConfig()).
		MatchTransaction(context.Background(), payment(-1, day(2026, 1, 1), "X"))
	assert.ErrorContains(t, err, "storing candidates")
}
