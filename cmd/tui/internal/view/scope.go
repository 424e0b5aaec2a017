package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/pipeline"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

// Scope is one client account over one calendar month, the unit a run reconciles.
type Scope struct {
	ClientID  uuid.UUID
	AccountID string
	Period    pipeline.Period
}

// Filter selects the live transactions of the scope.
func (s Scope) Filter() transaction.ListFilter {
	clientID := s.ClientID
	start, end := s.Period.Start(), s.Period.End()

	return transaction.ListFilter{
		ClientID:  &clientID,
		AccountID: s.AccountID,
		StartDate: &start,
		EndDate:   &end,
	}
}

func (s Scope) String() string {
	return fmt.Sprintf("%s / %s", s.AccountID, s.Period)
}

// PeriodChoice is a predefined or custom month selection.
type PeriodChoice int

const (
	PeriodLastMonth PeriodChoice = 0
	PeriodThisMonth PeriodChoice = 1
	PeriodCustom    PeriodChoice = 2
)

func (c PeriodChoice) String() string {
	switch c {
	case PeriodLastMonth:
		return "Last Month"
	case PeriodThisMonth:
		return "This Month"
	case PeriodCustom:
		return "Other Month"
	}

	return "Unknown"
}

// PeriodFor resolves a predefined choice relative to now.
func PeriodFor(c PeriodChoice, now time.Time) pipeline.Period {
	if c == PeriodLastMonth {
		now = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	}

	return pipeline.Period{Year: now.Year(), Month: now.Month()}
}

// ValidateClientID accepts a UUID.
func ValidateClientID(s string) error {
	if _, err := uuid.Parse(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("client id must be a UUID")
	}

	return nil
}

func validateAccount(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("account cannot be empty")
	}

	return nil
}

// ScopeSelectedMsg is emitted when the user has picked client, account and month.
type ScopeSelectedMsg struct {
	Scope Scope
}

type scopeState int

const (
	scopeStateAccount scopeState = iota
	scopeStatePeriod
	scopeStateCustom
)

type scopeFields struct {
	clientID  string
	accountID string
}

// ScopePicker is a reusable component asking for client and account, then the month.
type ScopePicker struct {
	state scopeState

	form   *huh.Form
	fields *scopeFields // bound to form; shared across copies of the picker

	selected    PeriodChoice
	periodInput textinput.Model

	err error
}

// NewScopePicker starts from the last scope used, if any.
func NewScopePicker(last Scope) ScopePicker {
	pi := textinput.New()
	pi.Placeholder = "YYYY-MM"
	pi.CharLimit = 7
	pi.Width = 9
	pi.Prompt = "Period: "

	fields := &scopeFields{accountID: last.AccountID}
	if last.ClientID != uuid.Nil {
		fields.clientID = last.ClientID.String()
	}

	return ScopePicker{
		state:       scopeStateAccount,
		form:        buildScopeForm(fields),
		fields:      fields,
		periodInput: pi,
	}
}

func buildScopeForm(fields *scopeFields) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("client_id").
				Title("Client ID").
				Value(&fields.clientID).
				Validate(ValidateClientID),
			huh.NewInput().
				Key("account_id").
				Title("Account").
				Placeholder("cuenta corriente").
				Value(&fields.accountID).
				Validate(validateAccount),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ScopePicker) Init() tea.Cmd {
	return m.form.Init()
}

func (m ScopePicker) Update(msg tea.Msg) (ScopePicker, tea.Cmd) {
	switch m.state {
	case scopeStateAccount:
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}

		if m.form.State == huh.StateCompleted {
			m.state = scopeStatePeriod
		}

		return m, cmd

	case scopeStatePeriod:
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			return m.updatePeriod(keyMsg)
		}

	case scopeStateCustom:
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.Type {
			case tea.KeyEnter:
				p, err := pipeline.ParsePeriod(m.periodInput.Value())
				if err != nil {
					m.err = fmt.Errorf("invalid period (YYYY-MM)")
					return m, nil
				}

				return m, m.selectedCmd(p)
			case tea.KeyEsc:
				m.state = scopeStatePeriod
				m.err = nil

				return m, nil
			}
		}

		var cmd tea.Cmd
		m.periodInput, cmd = m.periodInput.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m ScopePicker) updatePeriod(msg tea.KeyMsg) (ScopePicker, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.selected > PeriodLastMonth {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < PeriodCustom {
			m.selected++
		}
	case tea.KeyEnter:
		if m.selected == PeriodCustom {
			m.state = scopeStateCustom
			m.periodInput.Focus()

			return m, textinput.Blink
		}

		return m, m.selectedCmd(PeriodFor(m.selected, time.Now()))
	}

	return m, nil
}

func (m ScopePicker) selectedCmd(p pipeline.Period) tea.Cmd {
	scope := Scope{
		ClientID:  uuid.MustParse(strings.TrimSpace(m.fields.clientID)),
		AccountID: strings.TrimSpace(m.fields.accountID),
		Period:    p,
	}

	return func() tea.Msg {
		return ScopeSelectedMsg{Scope: scope}
	}
}

func (m ScopePicker) View() string {
	errStr := ""
	if m.err != nil {
		errStr = errorStyle.Render(fmt.Sprintf("\n\nError: %v", m.err))
	}

	switch m.state {
	case scopeStateAccount:
		return m.form.View()
	case scopeStateCustom:
		return fmt.Sprintf("Enter Period:\n\n%s\n\n(Enter to confirm, Esc to back)%s", m.periodInput.View(), errStr)
	}

	now := time.Now()
	s := fmt.Sprintf("Account %s\n\nSelect Period:\n\n", lipgloss.NewStyle().Bold(true).Render(m.fields.accountID))

	for c := PeriodLastMonth; c <= PeriodCustom; c++ {
		cursor := " "
		if m.selected == c {
			cursor = ">"
		}

		label := c.String()
		if c != PeriodCustom {
			label += fmt.Sprintf(" (%s)", PeriodFor(c, now))
		}

		s += fmt.Sprintf("%s %s\n", cursor, label)
	}

	return s + "\n(Enter to select, Esc to back)" + errStr
}

// IsEditing reports whether Esc should leave the picker rather than step back inside it.
func (m ScopePicker) IsEditing() bool {
	return m.state == scopeStateCustom
}
