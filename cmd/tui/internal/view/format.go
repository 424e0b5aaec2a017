package view

import (
	"context"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/conciliador/internal/normalize"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

const dbTimeout = 5 * time.Second

// FormatAmount renders minor units the way the bank prints them.
func FormatAmount(amount int64, currency string) string {
	if currency == "" {
		currency = "CLP"
	}

	return normalize.Display(amount, currency)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

// StatusLabel colors a transaction status for tables.
func StatusLabel(s transaction.Status) string {
	switch s {
	case transaction.StatusMatched, transaction.StatusManual:
		return successStyle.Render(string(s))
	case transaction.StatusUnmatched:
		return errorStyle.Render(string(s))
	case transaction.StatusPartial:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(string(s))
	}

	return string(s)
}
