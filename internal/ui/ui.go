// Package ui provides terminal styling helpers for CLI output.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	amountNeg    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	amountPos    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// RenderAccent renders s in the accent style.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderSuccess renders s in the success style.
func RenderSuccess(s string) string { return successStyle.Render(s) }

// RenderWarn renders s in the warning style.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderError renders s in the error style.
func RenderError(s string) string { return errorStyle.Render(s) }

// RenderFaint renders s faintly, for secondary detail.
func RenderFaint(s string) string { return faintStyle.Render(s) }

// RenderAmount colors a formatted money amount by sign.
func RenderAmount(formatted string, negative bool) string {
	if negative {
		return amountNeg.Render(formatted)
	}
	return amountPos.Render(formatted)
}
