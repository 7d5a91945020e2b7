package cli

import (
	"github.com/charmbracelet/lipgloss"

	"factlink/internal/answer"
	"factlink/internal/verify"
)

// Color styles for consistent output
var (
	// Status indicators
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	// Answer kinds
	YesNoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	EntityStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213"))

	// UI elements
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(lipgloss.Color("99"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	URLStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Underline(true)

	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)
)

// FormatSuccess formats a success message
func FormatSuccess(msg string) string {
	return SuccessStyle.Render("✅ " + msg)
}

// FormatError formats an error message
func FormatError(msg string) string {
	return ErrorStyle.Render("❌ " + msg)
}

// FormatWarning formats a warning message
func FormatWarning(msg string) string {
	return WarningStyle.Render("⚠️  " + msg)
}

// FormatInfo formats an info message
func FormatInfo(msg string) string {
	return InfoStyle.Render("ℹ️  " + msg)
}

// FormatVerdict colors a verdict
func FormatVerdict(v verify.Verdict) string {
	if v == verify.Correct {
		return FormatSuccess(string(v))
	}
	return FormatError(string(v))
}

// FormatAnswer colors an answer by kind
func FormatAnswer(a answer.Answer) string {
	switch a.Kind {
	case answer.KindYesNo:
		return YesNoStyle.Render(a.Text)
	case answer.KindEntity:
		return EntityStyle.Render(a.Text)
	default:
		return DimStyle.Render(a.Text)
	}
}
