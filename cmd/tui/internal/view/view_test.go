package view_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/conciliador/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/conciliador/internal/pipeline"
)

func TestPeriodFor(t *testing.T) {
	tests := []struct {
		name   string
		choice view.PeriodChoice
		now    time.Time
		want   pipeline.Period
	}{
		{
			name:   "ThisMonth",
			choice: view.PeriodThisMonth,
			now:    time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC),
			want:   pipeline.Period{Year: 2026, Month: time.March},
		},
		{
			name:   "LastMonthFromMonthEnd",
			choice: view.PeriodLastMonth,
			now:    time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC),
			want:   pipeline.Period{Year: 2026, Month: time.February},
		},
		{
			name:   "LastMonthAcrossYear",
			choice: view.PeriodLastMonth,
			now:    time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			want:   pipeline.Period{Year: 2025, Month: time.December},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, view.PeriodFor(tt.choice, tt.now))
		})
	}
}

func TestValidateClientID(t *testing.T) {
	assert.NoError(t, view.ValidateClientID(" "+uuid.NewString()+" "))
	assert.Error(t, view.ValidateClientID("cliente-1"))
	assert.Error(t, view.ValidateClientID(""))
}

func TestScope_Filter(t *testing.T) {
	s := view.Scope{
		ClientID:  uuid.New(),
		AccountID: "cc-001",
		Period:    pipeline.Period{Year: 2026, Month: time.February},
	}

	f := s.Filter()

	require.NotNil(t, f.ClientID)
	assert.Equal(t, s.ClientID, *f.ClientID)
	assert.Equal(t, "cc-001", f.AccountID)
	require.NotNil(t, f.StartDate)
	require.NotNil(t, f.EndDate)
	assert.Equal(t, s.Period.Start(), *f.StartDate)
	assert.Equal(t, s.Period.End(), *f.EndDate)
	assert.Nil(t, f.Status)

	assert.Equal(t, "conciliacion_cc-001_2026-02.zip", view.ReportFilename(s))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "-1.250.000", view.FormatAmount(-1_250_000, ""))
	assert.Equal(t, "1.234,56", view.FormatAmount(123_456, "USD"))
}
