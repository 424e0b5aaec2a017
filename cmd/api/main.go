package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/MrJamesThe3rd/conciliador/internal/alert"
	alertStore "github.com/MrJamesThe3rd/conciliador/internal/alert/store"
	"github.com/MrJamesThe3rd/conciliador/internal/config"
	"github.com/MrJamesThe3rd/conciliador/internal/database"
	"github.com/MrJamesThe3rd/conciliador/internal/document"
	documentStore "github.com/MrJamesThe3rd/conciliador/internal/document/store"
	"github.com/MrJamesThe3rd/conciliador/internal/export"
	conciliadorHttp "github.com/MrJamesThe3rd/conciliador/internal/http"
	rulesHandler "github.com/MrJamesThe3rd/conciliador/internal/http/rules"
	runHandler "github.com/MrJamesThe3rd/conciliador/internal/http/run"
	statementHandler "github.com/MrJamesThe3rd/conciliador/internal/http/statement"
	txHandler "github.com/MrJamesThe3rd/conciliador/internal/http/transaction"
	"github.com/MrJamesThe3rd/conciliador/internal/logger"
	"github.com/MrJamesThe3rd/conciliador/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/conciliador/internal/matching/store"
	"github.com/MrJamesThe3rd/conciliador/internal/pipeline"
	pipelineStore "github.com/MrJamesThe3rd/conciliador/internal/pipeline/store"
	"github.com/MrJamesThe3rd/conciliador/internal/rules"
	rulesStore "github.com/MrJamesThe3rd/conciliador/internal/rules/store"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
	statementStore "github.com/MrJamesThe3rd/conciliador/internal/statement/store"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
	txStore "github.com/MrJamesThe3rd/conciliador/internal/transaction/store"
)

func main() {
	// .env is optional; the environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.LogLevel).With().Str("app", cfg.App.Name).Logger()
	ctx := logger.WithContext(context.Background(), log)

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	matchingCfg := matching.DefaultConfig()
	matchingCfg.AmountTolerance = cfg.Matching.AmountTolerance
	matchingCfg.DateWindowDays = cfg.Matching.DateWindowDays
	matchingCfg.MinScore = cfg.Matching.MinScore
	matchingCfg.ConfidentScore = cfg.Matching.ConfidentScore

	if err := matchingCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid matching config")
	}

	var (
		candidates = matchingStore.New(db)

		statementService   = statement.NewService(statementStore.New(db))
		transactionService = transaction.NewService(txStore.New(db), candidates)
		documentService    = document.NewService(documentStore.New(db))
		matchingService    = matching.NewService(candidates, documentService, matchingCfg)
		rulesService       = rules.NewService(rulesStore.New(db))
		alertService       = alert.NewService(alertStore.New(db))
		exportService      = export.NewService(transactionService, documentService)
	)

	steps := pipeline.NewSteps(pipeline.Deps{
		Statements:   statementService,
		Transactions: transactionService,
		Categorizer:  rulesService,
		Matcher:      matchingService,
		Alerts:       alertService,
	}, pipeline.StepConfig{AutoAcceptScore: cfg.Pipeline.AutoAcceptScore})

	orchestrator, err := pipeline.NewOrchestrator(pipelineStore.New(db), steps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}

	runner := pipeline.NewRunner(orchestrator, cfg.Pipeline.QueueSize)
	runner.Start(ctx, cfg.Pipeline.Workers)

	requeueUnfinished(ctx, log, orchestrator, runner)

	var (
		uploadsH      = statementHandler.NewHandler(statementService, cfg.Server.MaxUploadSize)
		runsH         = runHandler.NewHandler(orchestrator, runner, alertService, exportService)
		transactionsH = txHandler.NewHandler(transactionService, matchingService, documentService, rulesService)
		rulesH        = rulesHandler.NewHandler(rulesService)
	)

	router := conciliadorHttp.New(conciliadorHttp.Options{
		Log:            log,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, uploadsH, runsH, transactionsH, rulesH)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := runner.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("pipeline runner did not stop in time")
	}
}

// requeueUnfinished picks up runs that were executing when the process last stopped.
// Paused, failed and completed runs wait for an operator.
func requeueUnfinished(ctx context.Context, log zerolog.Logger, runs *pipeline.Orchestrator, runner *pipeline.Runner) {
	all, err := runs.List(ctx, pipeline.ListFilter{})
	if err != nil {
		log.Error().Err(err).Msg("failed to list unfinished runs")
		return
	}

	for _, run := range all {
		if run.State != pipeline.StatePending && !run.State.IsStep() {
			continue
		}

		if err := runner.Enqueue(ctx, run.ID); err != nil {
			log.Error().Err(err).Str("run_id", run.ID.String()).Msg("failed to requeue run")
			return
		}

		log.Info().Str("run_id", run.ID.String()).Str("state", string(run.State)).Msg("run requeued")
	}
}
