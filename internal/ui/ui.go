// Package ui provides terminal styling helpers for CLI output.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
)

// RenderPass styles text as a success indicator.
func RenderPass(s string) string {
	return passStyle.Render(s)
}

// RenderWarn styles text as a warning.
func RenderWarn(s string) string {
	return warnStyle.Render(s)
}

// RenderErr styles text as an error.
func RenderErr(s string) string {
	return errStyle.Render(s)
}

// RenderAccent styles text as an informational highlight.
func RenderAccent(s string) string {
	return accentStyle.Render(s)
}

// RenderDim styles text as secondary detail.
func RenderDim(s string) string {
	return dimStyle.Render(s)
}

// StatusGlyph maps a sync status string to a styled glyph for list output.
func StatusGlyph(status string) string {
	switch status {
	case "synced":
		return RenderPass("✓")
	case "pending":
		return RenderWarn("●")
	case "failed":
		return RenderErr("✗")
	default:
		return RenderDim("?")
	}
}
