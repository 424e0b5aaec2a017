package view

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/normalize"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
)

type uploadState int

const (
	uploadStateBankSelect uploadState = iota
	uploadStateFilePick
	uploadStateAccount
	uploadStateUploading
	uploadStateResult
)

// UploadModel stores a bank statement as pending for the next run of its account.
type UploadModel struct {
	CommonModel
	uploads Uploads

	state       uploadState
	filePicker  filepicker.Model
	bankOptions []statement.Bank
	bankCursor  int

	path    string
	content []byte
	preview *normalize.File

	form   *huh.Form
	fields *scopeFields

	status string
	err    error
}

func NewUploadModel(uploads Uploads, last Scope) UploadModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.AllowedTypes = []string{".csv", ".pdf", ".CSV", ".PDF"}
	fp.SetHeight(15)

	fields := &scopeFields{accountID: last.AccountID}
	if last.ClientID != uuid.Nil {
		fields.clientID = last.ClientID.String()
	}

	return UploadModel{
		uploads:     uploads,
		filePicker:  fp,
		bankOptions: statement.Banks(),
		fields:      fields,
	}
}

func (m UploadModel) Title() string { return "Upload Statement" }

func (m UploadModel) ShortHelp() string {
	return "Esc: back | Enter: select"
}

func (m UploadModel) Init() tea.Cmd {
	return nil
}

func (m UploadModel) selectedBank() statement.Bank {
	return m.bankOptions[m.bankCursor]
}

func (m UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == uploadStateBankSelect {
			return m.updateBankSelect(msg)
		}

	case fileReadMsg:
		if msg.err != nil {
			m.state = uploadStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.content = msg.content
		m.preview = msg.preview
		m.form = buildScopeForm(m.fields)
		m.state = uploadStateAccount

		return m, m.form.Init()

	case uploadResultMsg:
		m.state = uploadStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Stored %s as %s. The next run of %s imports it.",
			msg.upload.Filename, msg.upload.Status, msg.upload.AccountID)

		return m, nil
	}

	switch m.state {
	case uploadStateFilePick:
		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.path = path
			m.status = fmt.Sprintf("Reading %s...", path)

			return m, m.readCmd(path)
		}

		return m, cmd

	case uploadStateAccount:
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}

		if m.form.State != huh.StateCompleted {
			return m, cmd
		}

		m.state = uploadStateUploading
		m.status = "Uploading..."

		return m, m.uploadCmd()
	}

	return m, nil
}

func (m UploadModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case uploadStateFilePick, uploadStateAccount:
		m.state = uploadStateBankSelect
		return m, nil
	case uploadStateResult:
		m.state = uploadStateBankSelect
		m.err = nil
		m.status = ""
		m.content = nil
		m.preview = nil

		return m, nil
	}

	return m, Back
}

func (m UploadModel) updateBankSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.bankCursor > 0 {
			m.bankCursor--
		}
	case tea.KeyDown:
		if m.bankCursor < len(m.bankOptions)-1 {
			m.bankCursor++
		}
	case tea.KeyEnter:
		m.state = uploadStateFilePick
		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m UploadModel) View() string {
	switch m.state {
	case uploadStateBankSelect:
		return m.viewBankSelect()
	case uploadStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select statement (%s):\n\n%s", m.selectedBank(), m.filePicker.View()),
		)
	case uploadStateAccount:
		return lipgloss.NewStyle().Padding(1).Render(
			lipgloss.JoinVertical(lipgloss.Left, m.viewPreview(), "", m.form.View()),
		)
	case uploadStateUploading:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case uploadStateResult:
		return m.viewResult()
	}

	return ""
}

func (m UploadModel) viewBankSelect() string {
	s := "Select Bank:\n\n"

	for i, bank := range m.bankOptions {
		cursor := " "
		if i == m.bankCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, string(bank))
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

// viewPreview summarizes what the import step will read from the file.
func (m UploadModel) viewPreview() string {
	if m.preview == nil {
		return ""
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s: %d movements, %d duplicates, %d unreadable rows\n",
		filepath.Base(m.path), len(m.preview.Records), m.preview.Duplicates, len(m.preview.Skipped))
	fmt.Fprintf(&b, "Movements total: %s\n", FormatAmount(m.preview.MovementsTotal, "CLP"))

	for i, skipped := range m.preview.Skipped {
		if i == 3 {
			fmt.Fprintf(&b, "  ... %d more\n", len(m.preview.Skipped)-i)
			break
		}

		b.WriteString(faintStyle.Render("  "+skipped.Error()) + "\n")
	}

	return b.String()
}

func (m UploadModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(errorStyle.Render(m.status) + "\n\n(Esc to go back)")
	}

	return style.Render(successStyle.Render(m.status) + "\n\n(Esc to go back)")
}

// Messages

type fileReadMsg struct {
	content []byte
	preview *normalize.File
	err     error
}

type uploadResultMsg struct {
	upload *statement.Upload
	err    error
}

// readCmd loads the file and parses it locally so a wrong bank is caught before storing.
func (m UploadModel) readCmd(path string) tea.Cmd {
	bank := m.selectedBank()

	return func() tea.Msg {
		content, err := os.ReadFile(path)
		if err != nil {
			return fileReadMsg{err: err}
		}

		preview, err := normalize.ParseFile(normalize.Options{Bank: bank}, bytes.NewReader(content))
		if err != nil {
			return fileReadMsg{err: err}
		}

		return fileReadMsg{content: content, preview: preview}
	}
}

func (m UploadModel) uploadCmd() tea.Cmd {
	params := statement.UploadParams{
		ClientID:  uuid.MustParse(strings.TrimSpace(m.fields.clientID)),
		AccountID: strings.TrimSpace(m.fields.accountID),
		Bank:      m.selectedBank(),
		Filename:  filepath.Base(m.path),
		Content:   m.content,
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		upload, err := m.uploads.Upload(ctx, params)

		return uploadResultMsg{upload: upload, err: err}
	}
}
