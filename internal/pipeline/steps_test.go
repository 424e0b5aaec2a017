package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/conciliador/internal/alert"
	"github.com/MrJamesThe3rd/conciliador/internal/matching"
	"github.com/MrJamesThe3rd/conciliador/internal/pipeline"
	"github.com/MrJamesThe3rd/conciliador/internal/rules"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

type mocks struct {
	statements   *pipeline.MockStatements
	transactions *pipeline.MockTransactions
	categorizer  *pipeline.MockCategorizer
	matcher      *pipeline.MockMatcher
	emitter      *pipeline.MockEmitter
}

func newSteps(t *testing.T, cfg pipeline.StepConfig) (map[pipeline.State]pipeline.Step, *mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := &mocks{
		statements:   pipeline.NewMockStatements(ctrl),
		transactions: pipeline.NewMockTransactions(ctrl),
		categorizer:  pipeline.NewMockCategorizer(ctrl),
		matcher:      pipeline.NewMockMatcher(ctrl),
		emitter:      pipeline.NewMockEmitter(ctrl),
	}

	steps := pipeline.NewSteps(pipeline.Deps{
		Statements:   m.statements,
		Transactions: m.transactions,
		Categorizer:  m.categorizer,
		Matcher:      m.matcher,
		Alerts:       m.emitter,
	}, cfg)

	byState := make(map[pipeline.State]pipeline.Step, len(steps))
	for _, s := range steps {
		byState[s.State()] = s
	}

	return byState, m
}

func testRun() *pipeline.Run {
	return &pipeline.Run{
		ID:        uuid.New(),
		ClientID:  uuid.New(),
		AccountID: "cc-001",
		Period:    pipeline.Period{Year: 2026, Month: time.January},
	}
}

func movement(status transaction.Status) *transaction.Transaction {
	tx := &transaction.Transaction{
		ID:          uuid.New(),
		Date:        time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "PAGO PROVEEDOR",
		Amount:      -50_000,
		Status:      status,
	}

	if status.Linked() {
		doc := uuid.New()
		tx.DocumentID = &doc
	}

	return tx
}

func TestNewSteps_Order(t *testing.T) {
	steps := pipeline.NewSteps(pipeline.Deps{}, pipeline.StepConfig{})
	require.Len(t, steps, pipeline.TotalSteps)

	for i, s := range steps {
		assert.Equal(t, pipeline.Steps[i], s.State())
	}
}

const estadoCSV = `BancoEstado - Cartola Cuenta Corriente
Saldo inicial;1.250.000

Fecha;Descripción;Monto;Saldo
15/01/2026;PAGO PROVEEDOR 76.086.428-5;-50.000;1.200.000
16/01/2026;ABONO TRANSFERENCIA;125.500;1.325.500
16/01/2026;ABONO TRANSFERENCIA;125.500;1.451.000
17/01/2026;COMISION;no-es-monto;1.451.000
Saldo final;1.451.000
`

func TestImportStep(t *testing.T) {
	steps, m := newSteps(t, pipeline.StepConfig{})
	run := testRun()

	good := &statement.Upload{
		ID: uuid.New(), ClientID: run.ClientID, AccountID: run.AccountID,
		Bank: statement.BankEstado, Filename: "enero.csv", Content: []byte(estadoCSV),
	}
	broken := &statement.Upload{
		ID: uuid.New(), ClientID: run.ClientID, AccountID: run.AccountID,
		Bank: statement.BankSantander, Filename: "enero.pdf", Content: []byte("not a pdf"),
	}

	m.statements.EXPECT().Pending(gomock.Any(), run.ClientID, run.AccountID).Return([]*statement.Upload{broken, good}, nil)
	m.statements.EXPECT().MarkFailed(gomock.Any(), broken.ID, gomock.Any()).Return(nil)

	m.transactions.EXPECT().ImportBatch(gomock.Any(), run.ClientID, run.AccountID, gomock.Len(2)).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, _ string, params []transaction.CreateParams) (*transaction.ImportResult, error) {
			for _, p := range params {
				require.NotNil(t, p.StatementID)
				assert.Equal(t, good.ID, *p.StatementID)
			}

			return &transaction.ImportResult{Imported: make([]*transaction.Transaction, 2)}, nil
		})

	m.statements.EXPECT().MarkImported(gomock.Any(), good.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, stats statement.ImportStats) error {
			require.NotNil(t, stats.OpeningBalance)
			require.NotNil(t, stats.ClosingBalance)
			assert.Equal(t, int64(1_250_000), *stats.OpeningBalance)
			assert.Equal(t, int64(1_451_000), *stats.ClosingBalance)
			// The repeated row is dropped, so the statement no longer adds up.
			assert.Equal(t, int64(75_500), stats.MovementsTotal)
			return nil
		})

	res, err := steps[pipeline.StateImport].Run(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Counters.Imported)
	// One rejected file and one unreadable row.
	assert.Equal(t, 2, res.Counters.Errors)
}

func TestImportStep_StoreErrorFailsStep(t *testing.T) {
	steps, m := newSteps(t, pipeline.StepConfig{})
	run := testRun()

	m.statements.EXPECT().Pending(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, err := steps[pipeline.StateImport].Run(context.Background(), run)
	assert.ErrorContains(t, err, "db down")
}

func TestNormalizeStep(t *testing.T) {
	steps, m := newSteps(t, pipeline.StepConfig{})
	run := testRun()

	m.transactions.EXPECT().SupersedeDuplicates(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f transaction.ListFilter) (int, error) {
			assert.Equal(t, run.ClientID, *f.ClientID)
			assert.Equal(t, "cc-001", f.AccountID)
			assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *f.StartDate)
			assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), *f.EndDate)
			return 1, nil
		})

	_, err := steps[pipeline.StateNormalize].Run(context.Background(), run)
	require.NoError(t, err)
}

func TestCategorizeStep(t *testing.T) {
	steps, m := newSteps(t, pipeline.StepConfig{})
	run := testRun()

	engine, err := rules.NewEngine([]rules.Rule{{Name: "prov", Contains: "proveedor", Category: "proveedores"}})
	require.NoError(t, err)

	fresh := movement(transaction.StatusPending)
	done := movement(transaction.StatusPending)
	done.Category = new("arriendos")
	retry := movement(transaction.StatusPending)
	retry.Category = new(rules.Uncategorized)
	still := movement(transaction.StatusPending)
	still.Description = "OTRA COSA"
	still.Category = new(rules.Uncategorized)

	m.categorizer.EXPECT().Engine(gomock.Any(), run.ClientID).Return(engine, nil)
	m.transactions.EXPECT().List(gomock.Any(), gomock.Any()).Return([]*transaction.Transaction{fresh, done, retry, still}, nil)
	m.transactions.EXPECT().SetCategory(gomock.Any(), fresh.ID, "proveedores").Return(nil)
	m.transactions.EXPECT().SetCategory(gomock.Any(), retry.ID, "proveedores").Return(nil)

	_, err = steps[pipeline.StateCategorize].Run(context.Background(), run)
	require.NoError(t, err)
}

func outcome(tx *transaction.Transaction, status transaction.Status, scores ...float64) *matching.Outcome {
	o := &matching.Outcome{TransactionID: tx.ID, Status: status}
	for _, s := range scores {
		o.Candidates = append(o.Candidates, matching.Candidate{DocumentID: uuid.New(), Score: s})
	}

	return o
}

func TestMatchStep_AutoAcceptDisabled(t *testing.T) {
	steps, m := newSteps(t, pipeline.StepConfig{})
	run := testRun()

	strong := movement(transaction.StatusPending)
	weak := movement(transaction.StatusPending)
	none := movement(transaction.StatusPending)
	linked := movement(transaction.StatusMatched)

	m.transactions.EXPECT().List(gomock.Any(), gomock.Any()).Return([]*transaction.Transaction{strong, weak, none, linked}, nil)

	m.matcher.EXPECT().MatchTransaction(gomock.Any(), strong).Return(outcome(strong, transaction.StatusPending, 0.97), nil)
	m.matcher.EXPECT().MatchTransaction(gomock.Any(), weak).Return(outcome(weak, transaction.StatusPartial, 0.5), nil)
	m.matcher.EXPECT().MatchTransaction(gomock.Any(), none).Return(outcome(none, transaction.StatusUnmatched), nil)

	m.transactions.EXPECT().SetMatchOutcome(gomock.Any(), weak.ID, transaction.StatusPartial).Return(nil)
	m.transactions.EXPECT().SetMatchOutcome(gomock.Any(), none.ID, transaction.StatusUnmatched).Return(nil)

	res, err := steps[pipeline.StateMatch].Run(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Counters.Matched, "confident proposals wait for review")
}

func TestMatchStep_AutoAcceptEnabled(t *testing.T) {
	steps, m := newSteps(t, pipeline.StepConfig{AutoAcceptScore: new(0.95)})
	run := testRun()

	strong := movement(transaction.StatusPending)
	confident := movement(transaction.StatusPartial)

	strongOutcome := outcome(strong, transaction.StatusPending, 0.97, 0.6)

	m.transactions.EXPECT().List(gomock.Any(), gomock.Any()).Return([]*transaction.Transaction{strong, confident}, nil)
	m.matcher.EXPECT().MatchTransaction(gomock.Any(), strong).Return(strongOutcome, nil)
	m.matcher.EXPECT().MatchTransaction(gomock.Any(), confident).Return(outcome(confident, transaction.StatusPending, 0.8), nil)

	m.transactions.EXPECT().AutoConfirm(gomock.Any(), strong.ID, strongOutcome.Candidates[0].DocumentID, 0.97).Return(strong, nil)
	m.transactions.EXPECT().SetMatchOutcome(gomock.Any(), confident.ID, transaction.StatusPending).Return(nil)

	res, err := steps[pipeline.StateMatch].Run(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counters.Matched, "only the auto-accepted link counts")
}

func TestMatchStep_NoDocumentsLeavesUnmatched(t *testing.T) {
	steps, m := newSteps(t, pipeline.StepConfig{AutoAcceptScore: new(0.9)})
	run := testRun()

	tx := movement(transaction.StatusUnmatched)

	m.transactions.EXPECT().List(gomock.Any(), gomock.Any()).Return([]*transaction.Transaction{tx}, nil)
	m.matcher.EXPECT().MatchTransaction(gomock.Any(), tx).Return(outcome(tx, transaction.StatusUnmatched), nil)

	res, err := steps[pipeline.StateMatch].Run(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Counters.Matched)
}

func TestMatchStep_MatcherErrorFailsStep(t *testing.T) {
	steps, m := newSteps(t, pipeline.StepConfig{})
	run := testRun()

	tx := movement(transaction.StatusPending)

	m.transactions.EXPECT().List(gomock.Any(), gomock.Any()).Return([]*transaction.Transaction{tx}, nil)
	m.matcher.EXPECT().MatchTransaction(gomock.Any(), tx).Return(nil, errors.New("documents unavailable"))

	_, err := steps[pipeline.StateMatch].Run(context.Background(), run)
	assert.ErrorContains(t, err, "documents unavailable")
}

func unbalancedUpload() *statement.Upload {
	return &statement.Upload{
		ID:             uuid.New(),
		Filename:       "enero.csv",
		OpeningBalance: new(int64(1_000)),
		ClosingBalance: new(int64(2_000)),
		MovementsTotal: new(int64(900)),
	}
}

func TestValidateStep(t *testing.T) {
	steps, m := newSteps(t, pipeline.StepConfig{})
	run := testRun()

	broken := movement(transaction.StatusMatched)
	broken.DocumentID = nil

	m.statements.EXPECT().List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f statement.UploadFilter) ([]*statement.Upload, error) {
			assert.Equal(t, statement.UploadImported, *f.Status)
			return []*statement.Upload{unbalancedUpload(), {ID: uuid.New()}}, nil
		})
	m.transactions.EXPECT().List(gomock.Any(), gomock.Any()).
		Return([]*transaction.Transaction{broken, movement(transaction.StatusPending)}, nil)

	res, err := steps[pipeline.StateValidate].Run(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Counters.Errors)
}

func TestAlertStep(t *testing.T) {
	steps, m := newSteps(t, pipeline.StepConfig{})
	run := testRun()

	partial := movement(transaction.StatusPartial)
	unmatched := movement(transaction.StatusUnmatched)

	imported := statement.UploadImported
	failed := statement.UploadFailed

	m.statements.EXPECT().List(gomock.Any(), statement.UploadFilter{ClientID: &run.ClientID, AccountID: run.AccountID, Status: &imported}).
		Return([]*statement.Upload{unbalancedUpload()}, nil)
	m.statements.EXPECT().List(gomock.Any(), statement.UploadFilter{ClientID: &run.ClientID, AccountID: run.AccountID, Status: &failed}).
		Return([]*statement.Upload{{ID: uuid.New(), Filename: "roto.pdf", Error: "corrupt file"}}, nil)
	m.transactions.EXPECT().List(gomock.Any(), gomock.Any()).
		Return([]*transaction.Transaction{partial, unmatched, movement(transaction.StatusMatched)}, nil).Times(2)
	m.matcher.EXPECT().Candidates(gomock.Any(), partial.ID).Return([]matching.Candidate{{Score: 0.42}}, nil)

	m.emitter.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, events []alert.Event) (int, error) {
			types := make(map[alert.Type]int)
			for _, e := range events {
				assert.Equal(t, run.ID, e.RunID)
				types[e.Type]++
			}

			assert.Equal(t, map[alert.Type]int{
				alert.TypeBalanceMismatch: 1,
				alert.TypeImportFailed:    1,
				alert.TypeLowConfidence:   1,
				alert.TypeUnmatched:       1,
			}, types)

			return len(events), nil
		})

	res, err := steps[pipeline.StateAlert].Run(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Counters.Alerts)
}

func TestAlertStep_RetryCountsNewEventsOnly(t *testing.T) {
	steps, m := newSteps(t, pipeline.StepConfig{})
	run := testRun()

	unmatched := movement(transaction.StatusUnmatched)
	late := movement(transaction.StatusUnmatched)

	m.statements.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)
	m.transactions.EXPECT().List(gomock.Any(), gomock.Any()).
		Return([]*transaction.Transaction{unmatched, late}, nil).Times(2)

	// The first attempt stored the event of unmatched before the run stopped.
	m.emitter.EXPECT().Emit(gomock.Any(), gomock.Len(2)).Return(1, nil)

	res, err := steps[pipeline.StateAlert].Run(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counters.Alerts)
}

func TestApproveStep(t *testing.T) {
	tests := []struct {
		name     string
		statuses []transaction.Status
		wantWait bool
	}{
		{name: "AllDecided", statuses: []transaction.Status{transaction.StatusMatched, transaction.StatusManual, transaction.StatusUnmatched}},
		{name: "PendingReview", statuses: []transaction.Status{transaction.StatusMatched, transaction.StatusPending}, wantWait: true},
		{name: "PartialReview", statuses: []transaction.Status{transaction.StatusPartial}, wantWait: true},
		{name: "Empty", statuses: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, m := newSteps(t, pipeline.StepConfig{})

			var txs []*transaction.Transaction
			for _, s := range tt.statuses {
				txs = append(txs, movement(s))
			}

			m.transactions.EXPECT().List(gomock.Any(), gomock.Any()).Return(txs, nil)

			res, err := steps[pipeline.StateApprove].Run(context.Background(), testRun())
			require.NoError(t, err)
			assert.Equal(t, tt.wantWait, res.Wait)
		})
	}
}
