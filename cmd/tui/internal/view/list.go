package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

type listState int

const (
	listStateBrowse listState = iota
	listStateEdit
)

var statusFilters = []*transaction.Status{
	nil,
	new(transaction.StatusPending),
	new(transaction.StatusPartial),
	new(transaction.StatusUnmatched),
	new(transaction.StatusMatched),
	new(transaction.StatusManual),
}

type categoryFields struct {
	category string
	learn    bool
}

type ListModel struct {
	CommonModel
	txs     Transactions
	learner Learner

	state   listState
	table   table.Model
	list    []*transaction.Transaction
	summary transaction.Summary
	form    *huh.Form
	fields  *categoryFields

	// Filter cycling
	statusFilterIdx int
	dateFilterIdx   int

	filter  transaction.ListFilter
	loading bool
	err     error
	status  string
}

func NewListModel(txs Transactions, learner Learner) ListModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Account", Width: 14},
		{Title: "Status", Width: 10},
		{Title: "Amount", Width: 14},
		{Title: "Category", Width: 16},
		{Title: "Description", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
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

	return ListModel{
		txs:     txs,
		learner: learner,
		table:   t,
		filter:  transaction.ListFilter{},
	}
}

func (m ListModel) Title() string { return "Transactions" }

func (m ListModel) ShortHelp() string {
	if m.state == listStateEdit {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | e: category | s: status filter | d: date filter | u: uncategorized | r: refresh"
}

func (m ListModel) Init() tea.Cmd {
	return m.loadTxsCmd()
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadListMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.list = msg.txs
		m.summary = msg.summary
		m.refreshTable()

		return m, nil

	case listSaveMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Error saving: %v", msg.err)
		}

		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadTxsCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 12)
		return m, nil
	}

	switch m.state {
	case listStateBrowse:
		return m.updateBrowse(msg)
	case listStateEdit:
		return m.updateEdit(msg)
	}

	return m, nil
}

func (m ListModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadTxsCmd()
		case "e":
			return m.enterEditMode()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(statusFilters)
			m.applyFilter(time.Now())

			return m, m.loadTxsCmd()
		case "d":
			m.dateFilterIdx = (m.dateFilterIdx + 1) % 3
			m.applyFilter(time.Now())

			return m, m.loadTxsCmd()
		case "u":
			m.filter.Uncategorized = !m.filter.Uncategorized
			return m, m.loadTxsCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ListModel) enterEditMode() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.list) {
		return m, nil
	}

	tx := m.list[idx]

	m.fields = &categoryFields{}
	if tx.Category != nil {
		m.fields.category = *tx.Category
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("category").
				Title("Category").
				Value(&m.fields.category).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("category cannot be empty")
					}

					return nil
				}),

			huh.NewConfirm().
				Key("learn").
				Title("Remember for this description?").
				Value(&m.fields.learn),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m ListModel) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = listStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = listStateBrowse
	m.table.Focus()

	return m, m.saveCmd()
}

func (m ListModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	statusLabel := "All"
	if f := statusFilters[m.statusFilterIdx]; f != nil {
		statusLabel = string(*f)
	}

	dateLabels := []string{"All Time", "This Month", "Last Month"}

	header := fmt.Sprintf(
		"Filter: [s] Status: %s | [d] Date: %s | [u] Uncategorized: %t",
		activeStyle(statusLabel),
		activeStyle(dateLabels[m.dateFilterIdx]),
		m.filter.Uncategorized,
	)

	summary := fmt.Sprintf(
		"%d movements | %d matched | %d manual | %d pending | %d partial | %d unmatched | %.1f%% reconciled",
		m.summary.Total, m.summary.Matched, m.summary.Manual, m.summary.Pending,
		m.summary.Partial, m.summary.Unmatched, m.summary.Rate,
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().PaddingBottom(1).Render(faintStyle.Render(summary)),
		tableView,
	)

	if m.state == listStateEdit && m.form != nil {
		idx := m.table.Cursor()
		desc := ""

		if idx >= 0 && idx < len(m.list) {
			desc = m.list[idx].Description
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(
				fmt.Sprintf("Categorize\n\n%s\n\n%s", desc, m.form.View()),
			)

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *ListModel) applyFilter(now time.Time) {
	m.filter.Status = statusFilters[m.statusFilterIdx]

	switch m.dateFilterIdx {
	case 1, 2:
		p := PeriodFor(PeriodThisMonth, now)
		if m.dateFilterIdx == 2 {
			p = PeriodFor(PeriodLastMonth, now)
		}

		s, e := p.Start(), p.End()
		m.filter.StartDate = &s
		m.filter.EndDate = &e
	default:
		m.filter.StartDate = nil
		m.filter.EndDate = nil
	}
}

func (m *ListModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.list))

	for _, tx := range m.list {
		category := ""
		if tx.Category != nil {
			category = *tx.Category
		}

		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			tx.AccountID,
			string(tx.Status),
			FormatAmount(tx.Amount, tx.Currency),
			category,
			tx.Description,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadListMsg struct {
	txs     []*transaction.Transaction
	summary transaction.Summary
	err     error
}

func (m ListModel) loadTxsCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.txs.List(ctx, filter)
		if err != nil {
			return loadListMsg{err: err}
		}

		summary, err := m.txs.Summary(ctx, filter)

		return loadListMsg{txs: txs, summary: summary, err: err}
	}
}

type listSaveMsg struct {
	status string
	err    error
}

func (m ListModel) saveCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.list) {
		return nil
	}

	tx := m.list[idx]
	category := strings.TrimSpace(m.fields.category)
	learn := m.fields.learn

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.txs.SetCategory(ctx, tx.ID, category); err != nil {
			return listSaveMsg{err: err}
		}

		if !learn {
			return listSaveMsg{status: "Category saved"}
		}

		rule, err := m.learner.Learn(ctx, tx.ClientID, tx.NormalizedDescription, category)
		if err != nil {
			return listSaveMsg{err: err}
		}

		return listSaveMsg{status: fmt.Sprintf("Category saved, rule %q added", rule.Name)}
	}
}
