package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/lapse/cli/reader"
)

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewInspectManifest:
		content = m.renderInspectManifest()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectManifest() string {
	data, ok := m.data.(*reader.InspectManifestResponse)
	if !ok {
		return "Invalid data type for inspect_manifest"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Manifest"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Source", data.Source},
		{"Version", fmt.Sprintf("%d", data.Version)},
		{"Generated At", data.GeneratedAt},
		{"FPS", fmt.Sprintf("%g", data.FPS)},
		{"Frames", fmt.Sprintf("%d", data.Count)},
	}
	if data.Count > 0 {
		rows = append(rows,
			[]string{"Dates", fmt.Sprintf("%s → %s (%d days)", data.DateFrom, data.DateTo, data.Days)},
			[]string{"Duration", fmt.Sprintf("%.1fs", data.DurationSeconds)},
		)
	}

	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		value := row[1]
		if row[0] == "Frames" && data.Count == 0 {
			value = WarningStyle.Render(value)
		} else {
			value = ValueStyle.Render(value)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", label, value))
	}

	if data.First != nil {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("First:"), ValueStyle.Render(data.First.Path)))
	}
	if data.Last != nil {
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Last:"), ValueStyle.Render(data.Last.Path)))
	}

	return BoxStyle.Render(b.String())
}

// keyMap defines key bindings.
type keyMap struct {
	Quit  key.Binding
	Prev  key.Binding
	Next  key.Binding
	First key.Binding
	Last  key.Binding
	Date  key.Binding
	Enter key.Binding
	Back  key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Prev: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←", "previous frame"),
	),
	Next: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→", "next frame"),
	),
	First: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("home", "first frame"),
	),
	Last: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("end", "last frame"),
	),
	Date: key.NewBinding(
		key.WithKeys("d", "/"),
		key.WithHelp("d", "jump to date"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
