package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/MrJamesThe3rd/conciliador/internal/alert"
	"github.com/MrJamesThe3rd/conciliador/internal/logger"
	"github.com/MrJamesThe3rd/conciliador/internal/normalize"
	"github.com/MrJamesThe3rd/conciliador/internal/rules"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

type Deps struct {
	Statements   Statements
	Transactions Transactions
	Categorizer  Categorizer
	Matcher      Matcher
	Alerts       Emitter
}

type StepConfig struct {
	// AutoAcceptScore links the top candidate without review when its score reaches it. Nil disables it.
	AutoAcceptScore *float64
}

// NewSteps builds the standard step sequence.
func NewSteps(d Deps, cfg StepConfig) []Step {
	return []Step{
		&importStep{statements: d.Statements, txs: d.Transactions},
		&normalizeStep{txs: d.Transactions},
		&categorizeStep{txs: d.Transactions, categorizer: d.Categorizer},
		&matchStep{txs: d.Transactions, matcher: d.Matcher, autoAccept: cfg.AutoAcceptScore},
		&validateStep{findings: findings{statements: d.Statements, txs: d.Transactions}},
		&alertStep{findings: findings{statements: d.Statements, txs: d.Transactions}, matcher: d.Matcher, emitter: d.Alerts},
		&approveStep{txs: d.Transactions},
	}
}

// scope selects the live transactions of the run's account and month.
func scope(run *Run) transaction.ListFilter {
	clientID := run.ClientID
	start, end := run.Period.Start(), run.Period.End()

	return transaction.ListFilter{
		ClientID:  &clientID,
		AccountID: run.AccountID,
		StartDate: &start,
		EndDate:   &end,
	}
}

// importStep parses pending uploads and stores their movements. A file that cannot be
// parsed is marked failed and the others carry on.
type importStep struct {
	statements Statements
	txs        Transactions
}

func (s *importStep) State() State { return StateImport }

func (s *importStep) Run(ctx context.Context, run *Run) (Result, error) {
	var res Result

	uploads, err := s.statements.Pending(ctx, run.ClientID, run.AccountID)
	if err != nil {
		return res, fmt.Errorf("listing uploads: %w", err)
	}

	log := logger.FromContext(ctx)

	for _, u := range uploads {
		statementID := u.ID
		opts := normalize.Options{
			ClientID:    u.ClientID,
			AccountID:   u.AccountID,
			StatementID: &statementID,
			Bank:        u.Bank,
		}

		norm, err := normalize.ParseFile(opts, bytes.NewReader(u.Content))
		if err != nil {
			log.Warn().Err(err).Str("upload_id", u.ID.String()).Str("file", u.Filename).Msg("statement rejected")

			if err := s.statements.MarkFailed(ctx, u.ID, err.Error()); err != nil {
				return res, fmt.Errorf("marking upload failed: %w", err)
			}

			res.Counters.Errors++

			continue
		}

		for _, rowErr := range norm.Skipped {
			log.Warn().Err(rowErr).Str("upload_id", u.ID.String()).Msg("row skipped")
		}

		res.Counters.Errors += len(norm.Skipped)

		imported, err := s.txs.ImportBatch(ctx, u.ClientID, u.AccountID, norm.Records)
		if err != nil {
			return res, fmt.Errorf("importing %s: %w", u.Filename, err)
		}

		res.Counters.Imported += len(imported.Imported)

		stats := statement.ImportStats{
			OpeningBalance: norm.OpeningBalance,
			ClosingBalance: norm.ClosingBalance,
			MovementsTotal: norm.MovementsTotal,
		}

		if err := s.statements.MarkImported(ctx, u.ID, stats); err != nil {
			return res, fmt.Errorf("marking upload imported: %w", err)
		}

		log.Info().
			Str("upload_id", u.ID.String()).
			Int("imported", len(imported.Imported)).
			Int("duplicates", imported.Duplicates+norm.Duplicates).
			Int("skipped", len(norm.Skipped)).
			Msg("statement imported")
	}

	return res, nil
}

// normalizeStep collapses movements stored twice under the same dedup key, which happens when
// overlapping statements were imported before the key existed or by concurrent imports.
type normalizeStep struct {
	txs Transactions
}

func (s *normalizeStep) State() State { return StateNormalize }

func (s *normalizeStep) Run(ctx context.Context, run *Run) (Result, error) {
	n, err := s.txs.SupersedeDuplicates(ctx, scope(run))
	if err != nil {
		return Result{}, err
	}

	if n > 0 {
		log := logger.FromContext(ctx)
		log.Info().Int("superseded", n).Msg("duplicate transactions superseded")
	}

	return Result{}, nil
}

// categorizeStep applies the client's rule chain to movements without a category.
// Movements left as sin_categoria are tried again, so rules learned later still apply.
type categorizeStep struct {
	txs         Transactions
	categorizer Categorizer
}

func (s *categorizeStep) State() State { return StateCategorize }

func (s *categorizeStep) Run(ctx context.Context, run *Run) (Result, error) {
	engine, err := s.categorizer.Engine(ctx, run.ClientID)
	if err != nil {
		return Result{}, fmt.Errorf("loading rules: %w", err)
	}

	txs, err := s.txs.List(ctx, scope(run))
	if err != nil {
		return Result{}, fmt.Errorf("listing transactions: %w", err)
	}

	for _, tx := range txs {
		if tx.Category != nil && *tx.Category != rules.Uncategorized {
			continue
		}

		category := engine.Categorize(tx)
		if tx.Category != nil && *tx.Category == category {
			continue
		}

		if err := s.txs.SetCategory(ctx, tx.ID, category); err != nil {
			return Result{}, fmt.Errorf("categorizing %s: %w", tx.ID, err)
		}
	}

	return Result{}, nil
}

// matchStep proposes documents for every movement not yet linked. Only links made without
// review count as matched; confident proposals still wait for a human.
type matchStep struct {
	txs        Transactions
	matcher    Matcher
	autoAccept *float64
}

func (s *matchStep) State() State { return StateMatch }

func (s *matchStep) Run(ctx context.Context, run *Run) (Result, error) {
	var res Result

	txs, err := s.txs.List(ctx, scope(run))
	if err != nil {
		return res, fmt.Errorf("listing transactions: %w", err)
	}

	log := logger.FromContext(ctx)

	for _, tx := range txs {
		if tx.Status.Linked() {
			continue
		}

		outcome, err := s.matcher.MatchTransaction(ctx, tx)
		if err != nil {
			return res, fmt.Errorf("matching %s: %w", tx.ID, err)
		}

		if top, ok := outcome.Top(); ok && s.autoAccept != nil && top.Score >= *s.autoAccept {
			if _, err := s.txs.AutoConfirm(ctx, tx.ID, top.DocumentID, top.Score); err != nil {
				return res, fmt.Errorf("auto-confirming %s: %w", tx.ID, err)
			}

			log.Info().
				Str("transaction_id", tx.ID.String()).
				Str("document_id", top.DocumentID.String()).
				Float64("score", top.Score).
				Msg("match auto-accepted")

			res.Counters.Matched++

			continue
		}

		if outcome.Status != tx.Status {
			if err := s.txs.SetMatchOutcome(ctx, tx.ID, outcome.Status); err != nil {
				return res, fmt.Errorf("recording outcome of %s: %w", tx.ID, err)
			}
		}
	}

	return res, nil
}

// findings derives the validation results from stored data, so the alert step can rebuild
// exactly what validate counted even after a pause in between.
type findings struct {
	statements Statements
	txs        Transactions
}

func (f findings) collect(ctx context.Context, run *Run) ([]alert.Event, error) {
	var events []alert.Event

	clientID := run.ClientID
	imported := statement.UploadImported

	uploads, err := f.statements.List(ctx, statement.UploadFilter{ClientID: &clientID, AccountID: run.AccountID, Status: &imported})
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}

	for _, u := range uploads {
		if u.Reconciles() {
			continue
		}

		events = append(events, alert.Event{
			RunID:    run.ID,
			Type:     alert.TypeBalanceMismatch,
			Severity: alert.SeverityCritical,
			Message: fmt.Sprintf("%s: opening %d plus movements %d does not reach closing %d",
				u.Filename, *u.OpeningBalance, *u.MovementsTotal, *u.ClosingBalance),
			DedupKey: fmt.Sprintf("%s|balance|%s", run.ID, u.ID),
		})
	}

	txs, err := f.txs.List(ctx, scope(run))
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			id := tx.ID
			events = append(events, alert.Event{
				RunID:         run.ID,
				Type:          alert.TypeInvariantViolation,
				Severity:      alert.SeverityCritical,
				TransactionID: &id,
				Message:       err.Error(),
			})
		}
	}

	return events, nil
}

// validateStep counts the discrepancies the alert step reports.
type validateStep struct {
	findings findings
}

func (s *validateStep) State() State { return StateValidate }

func (s *validateStep) Run(ctx context.Context, run *Run) (Result, error) {
	events, err := s.findings.collect(ctx, run)
	if err != nil {
		return Result{}, err
	}

	log := logger.FromContext(ctx)
	for _, e := range events {
		log.Warn().Str("type", string(e.Type)).Msg(e.Message)
	}

	return Result{Counters: Counters{Errors: len(events)}}, nil
}

// alertStep records validation findings, failed imports and weak matches in the outbox.
type alertStep struct {
	findings findings
	matcher  Matcher
	emitter  Emitter
}

func (s *alertStep) State() State { return StateAlert }

func (s *alertStep) Run(ctx context.Context, run *Run) (Result, error) {
	events, err := s.findings.collect(ctx, run)
	if err != nil {
		return Result{}, err
	}

	clientID := run.ClientID
	failed := statement.UploadFailed

	uploads, err := s.findings.statements.List(ctx, statement.UploadFilter{ClientID: &clientID, AccountID: run.AccountID, Status: &failed})
	if err != nil {
		return Result{}, fmt.Errorf("listing uploads: %w", err)
	}

	for _, u := range uploads {
		events = append(events, alert.Event{
			RunID:    run.ID,
			Type:     alert.TypeImportFailed,
			Severity: alert.SeverityCritical,
			Message:  fmt.Sprintf("%s: %s", u.Filename, u.Error),
			DedupKey: fmt.Sprintf("%s|import|%s", run.ID, u.ID),
		})
	}

	txs, err := s.findings.txs.List(ctx, scope(run))
	if err != nil {
		return Result{}, fmt.Errorf("listing transactions: %w", err)
	}

	for _, tx := range txs {
		id := tx.ID

		switch tx.Status {
		case transaction.StatusPartial:
			candidates, err := s.matcher.Candidates(ctx, tx.ID)
			if err != nil {
				return Result{}, fmt.Errorf("loading candidates of %s: %w", tx.ID, err)
			}

			msg := fmt.Sprintf("%s %d: only weak candidates", tx.Date.Format("2006-01-02"), tx.Amount)
			if len(candidates) > 0 {
				msg = fmt.Sprintf("%s %d: best candidate scores %.2f", tx.Date.Format("2006-01-02"), tx.Amount, candidates[0].Score)
			}

			events = append(events, alert.Event{
				RunID:         run.ID,
				Type:          alert.TypeLowConfidence,
				Severity:      alert.SeverityWarning,
				TransactionID: &id,
				Message:       msg,
			})
		case transaction.StatusUnmatched:
			events = append(events, alert.Event{
				RunID:         run.ID,
				Type:          alert.TypeUnmatched,
				Severity:      alert.SeverityInfo,
				TransactionID: &id,
				Message:       fmt.Sprintf("%s %d %q has no document", tx.Date.Format("2006-01-02"), tx.Amount, tx.Description),
			})
		}
	}

	emitted, err := s.emitter.Emit(ctx, events)
	if err != nil {
		return Result{}, err
	}

	// Events recorded by an earlier attempt of this step are not counted again.
	return Result{Counters: Counters{Alerts: emitted}}, nil
}

// approveStep completes the run once no movement in scope waits for a human decision.
type approveStep struct {
	txs Transactions
}

func (s *approveStep) State() State { return StateApprove }

func (s *approveStep) Run(ctx context.Context, run *Run) (Result, error) {
	txs, err := s.txs.List(ctx, scope(run))
	if err != nil {
		return Result{}, fmt.Errorf("listing transactions: %w", err)
	}

	waiting := 0

	for _, tx := range txs {
		if tx.Status.AwaitingReview() {
			waiting++
		}
	}

	if waiting > 0 {
		log := logger.FromContext(ctx)
		log.Info().Int("awaiting_review", waiting).Msg("run waits for approval")
		return Result{Wait: true}, nil
	}

	return Result{}, nil
}
