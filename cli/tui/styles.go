// Package tui holds the Bubble Tea views behind --tui.
//
// Views are read-only and render the same payloads the plain renderer
// prints, so every --tui view has a json/table equivalent.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Mode colors match across the stats boxes and timeline.
var (
	accentColor  = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	appendColor  = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	rebuildColor = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	cleanColor   = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	failureColor = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	textColor    = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	ValueStyle = lipgloss.NewStyle().Foreground(textColor)

	WarningStyle = lipgloss.NewStyle().Foreground(cleanColor)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// HelpStyle is the key legend under a box.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// HintStyle is muted inline text.
	HintStyle = lipgloss.NewStyle().Foreground(mutedColor)

	// ScrubberStyle draws the timeline position bar.
	ScrubberStyle = lipgloss.NewStyle().Foreground(accentColor)

	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(16).
			Align(lipgloss.Center)

	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Align(lipgloss.Center)
)
