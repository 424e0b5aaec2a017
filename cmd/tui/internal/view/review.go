package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/conciliador/internal/document"
	"github.com/MrJamesThe3rd/conciliador/internal/matching"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

type reviewState int

const (
	reviewStateScope reviewState = iota
	reviewStateReviewing
)

// proposal is a stored candidate with the document it points at. doc is nil when the
// document is gone.
type proposal struct {
	candidate matching.Candidate
	doc       *document.Document
}

// ReviewModel walks the movements awaiting confirmation and lets the operator confirm or
// reject their proposed documents.
type ReviewModel struct {
	CommonModel
	svc Services

	state  reviewState
	picker ScopePicker
	scope  Scope

	queue      []*transaction.Transaction
	currentTx  *transaction.Transaction
	proposals  []proposal
	candidates table.Model

	status     string
	loading    bool
	totalCount int
}

func NewReviewModel(svc Services, last Scope) ReviewModel {
	columns := []table.Column{
		{Title: "Score", Width: 6},
		{Title: "Type", Width: 14},
		{Title: "Folio", Width: 8},
		{Title: "Date", Width: 11},
		{Title: "Total", Width: 12},
		{Title: "Issuer", Width: 28},
		{Title: "Reasons", Width: 36},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	return ReviewModel{
		svc:        svc,
		picker:     NewScopePicker(last),
		candidates: t,
		state:      reviewStateScope,
		status:     "Select the account and month to review",
	}
}

func (m ReviewModel) Title() string { return "Review Matches" }

func (m ReviewModel) ShortHelp() string {
	if m.state == reviewStateScope {
		return "Esc: back | Enter: select"
	}

	return "Enter: confirm | x: reject | s: skip | Esc: back"
}

func (m ReviewModel) Init() tea.Cmd {
	return m.picker.Init()
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ScopeSelectedMsg:
		m.scope = msg.Scope
		m.state = reviewStateReviewing
		m.loading = true

		return m, m.loadQueueCmd()

	case loadQueueMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error loading transactions: %v", msg.err)
			break
		}

		m.queue = msg.txs
		m.totalCount = len(m.queue)

		return m.nextTx()

	case loadProposalsMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error loading candidates: %v", msg.err)
			break
		}

		m.proposals = msg.proposals
		m.refreshCandidates()

	case decisionMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error saving: %v", msg.err)
			break
		}

		return m.nextTx()

	case tea.KeyMsg:
		if m.state == reviewStateScope {
			if msg.Type == tea.KeyEsc && !m.picker.IsEditing() {
				return m, Back
			}

			break
		}

		if m.loading {
			return m, nil
		}

		switch msg.String() {
		case "esc":
			return m, Back
		case "s":
			return m.nextTx()
		case "enter":
			if p, ok := m.selectedProposal(); ok && m.currentTx != nil {
				return m, m.confirmCmd(p)
			}

			return m, nil
		case "x":
			if p, ok := m.selectedProposal(); ok && m.currentTx != nil {
				return m, m.rejectCmd(p)
			}

			return m, nil
		}

		var cmd tea.Cmd
		m.candidates, cmd = m.candidates.Update(msg)

		return m, cmd
	}

	if m.state == reviewStateScope {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m ReviewModel) selectedProposal() (proposal, bool) {
	idx := m.candidates.Cursor()
	if idx < 0 || idx >= len(m.proposals) {
		return proposal{}, false
	}

	return m.proposals[idx], true
}

func (m ReviewModel) nextTx() (tea.Model, tea.Cmd) {
	m.proposals = nil
	m.candidates.SetRows(nil)

	if len(m.queue) == 0 {
		m.currentTx = nil
		m.status = fmt.Sprintf("All done! Nothing left to review in %s.", m.scope)

		return m, nil
	}

	m.currentTx = m.queue[0]
	m.queue = m.queue[1:]

	currentIdx := m.totalCount - len(m.queue)
	m.status = fmt.Sprintf("Reviewing %d/%d", currentIdx, m.totalCount)
	m.loading = true

	return m, m.loadProposalsCmd(m.currentTx)
}

func (m *ReviewModel) refreshCandidates() {
	rows := make([]table.Row, 0, len(m.proposals))

	for _, p := range m.proposals {
		reasons := make([]string, len(p.candidate.Reasons))
		for i, r := range p.candidate.Reasons {
			reasons[i] = string(r)
		}

		row := table.Row{fmt.Sprintf("%.2f", p.candidate.Score), "?", "?", "?", "?", "(document removed)", strings.Join(reasons, ",")}
		if p.doc != nil {
			row = table.Row{
				fmt.Sprintf("%.2f", p.candidate.Score),
				string(p.doc.Type),
				fmt.Sprint(p.doc.Folio),
				FormatDate(p.doc.EmissionDate),
				FormatAmount(p.doc.Total, p.doc.Currency),
				p.doc.IssuerName,
				strings.Join(reasons, ","),
			}
		}

		rows = append(rows, row)
	}

	m.candidates.SetRows(rows)
	m.candidates.SetCursor(0)
}

func (m ReviewModel) View() string {
	if m.state == reviewStateScope {
		return lipgloss.NewStyle().Padding(2).Render(m.status + "\n\n" + m.picker.View())
	}

	if m.loading && m.currentTx == nil {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	if m.currentTx == nil {
		return lipgloss.NewStyle().Padding(2).Render(m.status + "\n\n(Esc to back)")
	}

	tx := m.currentTx
	info := fmt.Sprintf(
		"Date:   %s\nAmount: %s (%s)\nStatus: %s\nText:   %s\n",
		FormatDate(tx.Date),
		FormatAmount(tx.Amount, tx.Currency),
		tx.Direction(),
		StatusLabel(tx.Status),
		tx.Description,
	)

	candidates := "Loading candidates..."
	if !m.loading {
		candidates = "No candidates. Skip with s; the next run proposes again."
		if len(m.proposals) > 0 {
			candidates = m.candidates.View()
		}
	}

	return lipgloss.NewStyle().Padding(2).Render(
		fmt.Sprintf("%s\n\n%s\n%s\n\n(Enter to confirm, x to reject, s to skip, Esc to quit)", m.status, info, candidates),
	)
}

// Messages

type loadQueueMsg struct {
	txs []*transaction.Transaction
	err error
}

type loadProposalsMsg struct {
	proposals []proposal
	err       error
}

type decisionMsg struct {
	err error
}

// loadQueueCmd loads pending and partial movements of the scope, oldest first.
func (m ReviewModel) loadQueueCmd() tea.Cmd {
	scope := m.scope

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		var queue []*transaction.Transaction

		for _, status := range []transaction.Status{transaction.StatusPending, transaction.StatusPartial} {
			filter := scope.Filter()
			filter.Status = new(status)

			txs, err := m.svc.Transactions.List(ctx, filter)
			if err != nil {
				return loadQueueMsg{err: err}
			}

			queue = append(queue, txs...)
		}

		return loadQueueMsg{txs: queue}
	}
}

func (m ReviewModel) loadProposalsCmd(tx *transaction.Transaction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		candidates, err := m.svc.Candidates.Candidates(ctx, tx.ID)
		if err != nil {
			return loadProposalsMsg{err: err}
		}

		proposals := make([]proposal, 0, len(candidates))

		for _, c := range candidates {
			doc, err := m.svc.Documents.Get(ctx, c.DocumentID)
			if err != nil && !errors.Is(err, document.ErrNotFound) {
				return loadProposalsMsg{err: err}
			}

			proposals = append(proposals, proposal{candidate: c, doc: doc})
		}

		return loadProposalsMsg{proposals: proposals}
	}
}

func (m ReviewModel) confirmCmd(p proposal) tea.Cmd {
	txID := m.currentTx.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.svc.Transactions.Confirm(ctx, transaction.ConfirmParams{
			TransactionID: txID,
			DocumentID:    p.candidate.DocumentID,
			Notes:         fmt.Sprintf("confirmed from review, score %.2f", p.candidate.Score),
		})

		return decisionMsg{err: err}
	}
}

func (m ReviewModel) rejectCmd(p proposal) tea.Cmd {
	txID := m.currentTx.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		err := m.svc.Transactions.Reject(ctx, transaction.RejectParams{
			TransactionID: txID,
			DocumentID:    p.candidate.DocumentID,
			Notes:         "rejected from review",
		})

		return decisionMsg{err: err}
	}
}
