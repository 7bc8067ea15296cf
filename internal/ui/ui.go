// Package ui provides styled terminal output for the scrawl CLI.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// Color output is disabled on dumb terminals and pipes.
	colorEnabled = termenv.EnvColorProfile() != termenv.Ascii
)

func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// RenderAccent styles attention-drawing text.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderSuccess styles confirmation text.
func RenderSuccess(s string) string { return render(successStyle, s) }

// RenderWarn styles warning text.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderError styles failure text.
func RenderError(s string) string { return render(errorStyle, s) }

// RenderMuted styles secondary text.
func RenderMuted(s string) string { return render(mutedStyle, s) }
