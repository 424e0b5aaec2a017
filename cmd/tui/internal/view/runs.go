package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/alert"
	"github.com/MrJamesThe3rd/conciliador/internal/pipeline"
)

const (
	runRefreshInterval = 2 * time.Second
	// runTimeout bounds one execution from the TUI; a run cut short resumes from its last step.
	runTimeout = 30 * time.Minute
)

type runsState int

const (
	runsStateBrowse runsState = iota
	runsStateScope
)

// RunsModel lists pipeline runs and drives them: start, pause, resume, retry and cancel.
type RunsModel struct {
	CommonModel
	runs   Runs
	alerts Alerts

	state   runsState
	table   table.Model
	spinner spinner.Model
	picker  ScopePicker
	last    Scope

	list      []*pipeline.Run
	events    []alert.Event
	executing map[uuid.UUID]bool

	status string
	err    error
}

func NewRunsModel(runs Runs, alerts Alerts, last Scope) RunsModel {
	columns := []table.Column{
		{Title: "Period", Width: 8},
		{Title: "Account", Width: 18},
		{Title: "State", Width: 11},
		{Title: "Step", Width: 5},
		{Title: "Imported", Width: 9},
		{Title: "Matched", Width: 8},
		{Title: "Alerts", Width: 7},
		{Title: "Errors", Width: 7},
		{Title: "Detail", Width: 36},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return RunsModel{
		runs:      runs,
		alerts:    alerts,
		table:     t,
		spinner:   sp,
		last:      last,
		executing: make(map[uuid.UUID]bool),
	}
}

func (m RunsModel) Title() string { return "Reconciliation Runs" }

func (m RunsModel) ShortHelp() string {
	if m.state == runsStateScope {
		return "Esc: cancel"
	}

	return "Esc: back | n: new run | p: pause | u: resume | t: retry | c: cancel | a: alerts | r: refresh"
}

func (m RunsModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spinner.Tick)
}

func (m RunsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.list = msg.runs
		m.refreshTable()

		return m, nil

	case alertsLoadedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error loading alerts: %v", msg.err)
			return m, nil
		}

		m.events = msg.events
		m.status = fmt.Sprintf("%d alerts", len(msg.events))

		return m, nil

	case ScopeSelectedMsg:
		m.state = runsStateBrowse
		m.last = msg.Scope
		m.table.Focus()

		return m, m.startCmd(msg.Scope)

	case runActionMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, m.loadCmd()
		}

		m.status = msg.status

		if msg.execute != uuid.Nil {
			m.executing[msg.execute] = true
			return m, tea.Batch(m.loadCmd(), m.executeCmd(msg.execute), m.tickCmd())
		}

		return m, m.loadCmd()

	case runExecutedMsg:
		delete(m.executing, msg.id)

		var stepErr *pipeline.StepError

		switch {
		case msg.err == nil:
			m.status = "Run stopped at " + string(msg.state)
		case errors.As(msg.err, &stepErr):
			m.status = fmt.Sprintf("Step %s failed: %v", stepErr.Step, stepErr.Err)
		default:
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		return m, m.loadCmd()

	case runTickMsg:
		if len(m.executing) == 0 {
			return m, nil
		}

		return m, tea.Batch(m.loadCmd(), m.tickCmd())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 14)
		return m, nil
	}

	if m.state == runsStateScope {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc && !m.picker.IsEditing() {
			m.state = runsStateBrowse
			m.table.Focus()

			return m, nil
		}

		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)

		return m, cmd
	}

	return m.updateBrowse(msg)
}

func (m RunsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)

		return m, cmd
	}

	switch keyMsg.String() {
	case "esc":
		return m, Back
	case "r":
		return m, m.loadCmd()
	case "n":
		m.state = runsStateScope
		m.picker = NewScopePicker(m.last)
		m.table.Blur()

		return m, m.picker.Init()
	}

	run := m.selected()
	if run == nil {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)

		return m, cmd
	}

	switch keyMsg.String() {
	case "p":
		return m, m.actionCmd(run.ID, "Pause requested", func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
			return uuid.Nil, m.runs.RequestPause(ctx, id)
		})
	case "c":
		return m, m.actionCmd(run.ID, "Cancel requested", func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
			return uuid.Nil, m.runs.Cancel(ctx, id)
		})
	case "u":
		return m, m.actionCmd(run.ID, "Resumed", restart(m.runs.Resume))
	case "t":
		return m, m.actionCmd(run.ID, "Retrying", restart(m.runs.Retry))
	case "a":
		return m, m.loadAlertsCmd(run.ID)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m RunsModel) selected() *pipeline.Run {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.list) {
		return nil
	}

	return m.list[idx]
}

func (m RunsModel) View() string {
	if m.state == runsStateScope {
		return lipgloss.NewStyle().Padding(1).Render("New Run\n\n" + m.picker.View())
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	header := fmt.Sprintf("%d runs", len(m.list))
	if n := len(m.executing); n > 0 {
		header += fmt.Sprintf("  %s %d executing", m.spinner.View(), n)
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	parts := []string{lipgloss.NewStyle().PaddingBottom(1).Render(header), tableView}

	if m.status != "" {
		parts = append(parts, faintStyle.Render(m.status))
	}

	if len(m.events) > 0 {
		parts = append(parts, m.viewAlerts())
	}

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m RunsModel) viewAlerts() string {
	var b strings.Builder

	for i, e := range m.events {
		if i == 10 {
			fmt.Fprintf(&b, "... %d more\n", len(m.events)-i)
			break
		}

		sev := string(e.Severity)
		if e.Severity == alert.SeverityWarning || e.Severity == alert.SeverityCritical {
			sev = errorStyle.Render(sev)
		}

		fmt.Fprintf(&b, "%-8s %-24s %s\n", sev, e.Type, e.Message)
	}

	return b.String()
}

func (m *RunsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.list))

	for _, r := range m.list {
		state := string(r.State)
		if m.executing[r.ID] {
			state += "*"
		}

		detail := r.Error
		switch {
		case r.CancelRequested:
			detail = "cancel requested"
		case r.PauseRequested:
			detail = "pause requested"
		case r.State == pipeline.StateApprove:
			detail = "waiting for review"
		}

		rows = append(rows, table.Row{
			r.Period.String(),
			r.AccountID,
			state,
			fmt.Sprintf("%d/%d", r.Step, r.TotalSteps),
			fmt.Sprint(r.Counters.Imported),
			fmt.Sprint(r.Counters.Matched),
			fmt.Sprint(r.Counters.Alerts),
			fmt.Sprint(r.Counters.Errors),
			detail,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type runsLoadedMsg struct {
	runs []*pipeline.Run
	err  error
}

type alertsLoadedMsg struct {
	events []alert.Event
	err    error
}

// runActionMsg reports an operator action. A non-nil execute asks for the run to be executed.
type runActionMsg struct {
	status  string
	execute uuid.UUID
	err     error
}

type runExecutedMsg struct {
	id    uuid.UUID
	state pipeline.State
	err   error
}

type runTickMsg struct{}

func (m RunsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		runs, err := m.runs.List(ctx, pipeline.ListFilter{})

		return runsLoadedMsg{runs: runs, err: err}
	}
}

func (m RunsModel) loadAlertsCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		events, err := m.alerts.List(ctx, id)

		return alertsLoadedMsg{events: events, err: err}
	}
}

func (m RunsModel) tickCmd() tea.Cmd {
	return tea.Tick(runRefreshInterval, func(time.Time) tea.Msg {
		return runTickMsg{}
	})
}

func (m RunsModel) startCmd(scope Scope) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		run, err := m.runs.Start(ctx, pipeline.StartParams{
			ClientID:  scope.ClientID,
			AccountID: scope.AccountID,
			Period:    scope.Period,
		})
		if err != nil {
			return runActionMsg{err: err}
		}

		return runActionMsg{status: "Started " + scope.String(), execute: run.ID}
	}
}

func restart(fn func(context.Context, uuid.UUID) (*pipeline.Run, error)) func(context.Context, uuid.UUID) (uuid.UUID, error) {
	return func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
		run, err := fn(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}

		return run.ID, nil
	}
}

func (m RunsModel) actionCmd(id uuid.UUID, status string, fn func(context.Context, uuid.UUID) (uuid.UUID, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		execute, err := fn(ctx, id)

		return runActionMsg{status: status, execute: execute, err: err}
	}
}

func (m RunsModel) executeCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		err := m.runs.Execute(ctx, id)

		msg := runExecutedMsg{id: id, err: err}

		if run, getErr := m.runs.Get(ctx, id); getErr == nil {
			msg.state = run.State
		}

		return msg
	}
}
