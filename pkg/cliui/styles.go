package cliui

import "github.com/charmbracelet/lipgloss"

// Status marks shared by every command that reports per-item outcomes.
var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	FlagMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("⚑")
)

// Text styles for command output.
var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	NameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("117"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	WarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	TypeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("177"))

	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)
