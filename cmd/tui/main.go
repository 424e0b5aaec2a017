package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/conciliador/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/conciliador/internal/alert"
	alertStore "github.com/MrJamesThe3rd/conciliador/internal/alert/store"
	"github.com/MrJamesThe3rd/conciliador/internal/config"
	"github.com/MrJamesThe3rd/conciliador/internal/database"
	"github.com/MrJamesThe3rd/conciliador/internal/document"
	documentStore "github.com/MrJamesThe3rd/conciliador/internal/document/store"
	"github.com/MrJamesThe3rd/conciliador/internal/export"
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

type model struct {
	services view.Services
	appName  string

	// last is the account and month the operator worked on, offered again by every picker.
	last view.Scope

	currentView View

	uploadView view.UploadModel
	runsView   view.RunsModel
	reviewView view.ReviewModel
	listView   view.ListModel
	exportView view.ExportModel
}

type View int

const (
	ViewMenu   View = 0
	ViewUpload View = 1
	ViewRuns   View = 2
	ViewReview View = 3
	ViewList   View = 4
	ViewExport View = 5
)

func initialModel() model {
	_ = godotenv.Load()

	log := logger.New("info")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	matchingCfg := matching.DefaultConfig()
	matchingCfg.AmountTolerance = cfg.Matching.AmountTolerance
	matchingCfg.DateWindowDays = cfg.Matching.DateWindowDays
	matchingCfg.MinScore = cfg.Matching.MinScore
	matchingCfg.ConfidentScore = cfg.Matching.ConfidentScore

	if err := matchingCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid matching config")
	}

	candidates := matchingStore.New(db)

	var (
		statementSvc = statement.NewService(statementStore.New(db))
		txSvc        = transaction.NewService(txStore.New(db), candidates)
		documentSvc  = document.NewService(documentStore.New(db))
		matchSvc     = matching.NewService(candidates, documentSvc, matchingCfg)
		rulesSvc     = rules.NewService(rulesStore.New(db))
		alertSvc     = alert.NewService(alertStore.New(db))
		exportSvc    = export.NewService(txSvc, documentSvc)
	)

	steps := pipeline.NewSteps(pipeline.Deps{
		Statements:   statementSvc,
		Transactions: txSvc,
		Categorizer:  rulesSvc,
		Matcher:      matchSvc,
		Alerts:       alertSvc,
	}, pipeline.StepConfig{AutoAcceptScore: cfg.Pipeline.AutoAcceptScore})

	orchestrator, err := pipeline.NewOrchestrator(pipelineStore.New(db), steps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}

	return model{
		appName: cfg.App.Name,
		services: view.Services{
			Runs:         orchestrator,
			Transactions: txSvc,
			Candidates:   matchSvc,
			Documents:    documentSvc,
			Learner:      rulesSvc,
			Uploads:      statementSvc,
			Reports:      exportSvc,
			Alerts:       alertSvc,
		},
		currentView: ViewMenu,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewUpload
				m.uploadView = view.NewUploadModel(m.services.Uploads, m.last)

				return m, m.uploadView.Init()
			case "2":
				m.currentView = ViewRuns
				m.runsView = view.NewRunsModel(m.services.Runs, m.services.Alerts, m.last)

				return m, m.runsView.Init()
			case "3":
				m.currentView = ViewReview
				m.reviewView = view.NewReviewModel(m.services, m.last)

				return m, m.reviewView.Init()
			case "4":
				m.currentView = ViewList
				m.listView = view.NewListModel(m.services.Transactions, m.services.Learner)

				return m, m.listView.Init()
			case "5":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.services.Reports, m.last)

				return m, m.exportView.Init()
			}
		}
	case view.ScopeSelectedMsg:
		m.last = msg.Scope
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewUpload:
		var newModel tea.Model
		newModel, cmd = m.uploadView.Update(msg)
		m.uploadView = newModel.(view.UploadModel)
	case ViewRuns:
		var newModel tea.Model
		newModel, cmd = m.runsView.Update(msg)
		m.runsView = newModel.(view.RunsModel)
	case ViewReview:
		var newModel tea.Model
		newModel, cmd = m.reviewView.Update(msg)
		m.reviewView = newModel.(view.ReviewModel)
	case ViewList:
		var newModel tea.Model
		newModel, cmd = m.listView.Update(msg)
		m.listView = newModel.(view.ListModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.appName + "\n\n" +
				"1. Upload Statement\n" +
				"2. Reconciliation Runs\n" +
				"3. Review Matches\n" +
				"4. Transactions\n" +
				"5. Export Report\n\n" +
				"q. Quit",
		)
	case ViewUpload:
		return m.uploadView.View()
	case ViewRuns:
		return m.runsView.View()
	case ViewReview:
		return m.reviewView.View()
	case ViewList:
		return m.listView.View()
	case ViewExport:
		return m.exportView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run TUI: %v\n", err)
		os.Exit(1)
	}
}
