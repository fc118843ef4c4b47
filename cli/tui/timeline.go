package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/lapse/timeline"
)

// scrubberWidth is the character width of the position bar.
const scrubberWidth = 40

// TimelineModel scrubs through a manifest's frames.
type TimelineModel struct {
	nav      *timeline.Navigator
	date     textinput.Model
	jumping  bool
	width    int
	height   int
	quitting bool
}

// NewTimelineModel creates a timeline model positioned on the first frame.
func NewTimelineModel(nav *timeline.Navigator) TimelineModel {
	ti := textinput.New()
	ti.Placeholder = "YYYY-MM-DD"
	ti.CharLimit = 10
	ti.Width = 12
	if first, _, ok := nav.DateBounds(); ok {
		ti.SetValue(first)
	}

	return TimelineModel{nav: nav, date: ti}
}

// Init implements tea.Model.
func (m TimelineModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m TimelineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.jumping {
			return m.updateJump(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Prev):
			m.nav.Prev()
		case key.Matches(msg, keys.Next):
			m.nav.Next()
		case key.Matches(msg, keys.First):
			m.nav.Go(0)
		case key.Matches(msg, keys.Last):
			m.nav.Go(m.nav.Count() - 1)
		case key.Matches(msg, keys.Date):
			if m.nav.Count() == 0 {
				return m, nil
			}
			m.jumping = true
			return m, m.date.Focus()
		}
		m.syncDate()
	}

	return m, nil
}

func (m TimelineModel) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Enter):
		m.nav.JumpToDate(m.date.Value())
		m.jumping = false
		m.date.Blur()
		return m, nil
	case key.Matches(msg, keys.Back):
		m.jumping = false
		m.date.Blur()
		m.syncDate()
		return m, nil
	}

	var cmd tea.Cmd
	m.date, cmd = m.date.Update(msg)
	return m, cmd
}

// syncDate shows the current frame's date in the jump input.
func (m *TimelineModel) syncDate() {
	if f, ok := m.nav.Current(); ok {
		m.date.SetValue(f.Date())
	}
}

// View implements tea.Model.
func (m TimelineModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Timeline"))
	b.WriteString("\n\n")

	f, ok := m.nav.Current()
	if !ok {
		b.WriteString(WarningStyle.Render(m.nav.Status()))
		return BoxStyle.Render(b.String()) + "\n" + HelpStyle.Render("Press q or Ctrl+C to quit")
	}

	b.WriteString(ValueStyle.Render(m.nav.Label()))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Path:"), ValueStyle.Render(f.Path)))
	b.WriteString(renderScrubber(m.nav.Index(), m.nav.Count()))
	b.WriteString("\n\n")

	first, last, _ := m.nav.DateBounds()
	b.WriteString(fmt.Sprintf("%s %s %s\n",
		LabelStyle.Render("Date:"),
		m.date.View(),
		HintStyle.Render(fmt.Sprintf("(%s → %s)", first, last))))

	if neighbors := m.nav.Neighbors(); len(neighbors) > 0 {
		paths := make([]string, len(neighbors))
		for i, n := range neighbors {
			paths[i] = n.Path
		}
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Preload:"), ValueStyle.Render(strings.Join(paths, ", "))))
	}

	if status := m.nav.Status(); status != "" {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render(status))
	}

	help := "←/→ step • home/end first/last • d jump to date • q quit"
	if m.jumping {
		help = "enter jump • esc cancel"
	}
	return BoxStyle.Render(b.String()) + "\n" + HelpStyle.Render(help)
}

// renderScrubber draws a position bar for index within count frames.
func renderScrubber(index, count int) string {
	pos := 0
	if count > 1 {
		pos = index * (scrubberWidth - 1) / (count - 1)
	}
	bar := strings.Repeat("─", pos) + "●" + strings.Repeat("─", scrubberWidth-1-pos)
	return ScrubberStyle.Render(bar)
}

// RunTimelineTUI runs the timeline scrubber. data must be a
// *timeline.Navigator.
func RunTimelineTUI(data any) error {
	nav, ok := data.(*timeline.Navigator)
	if !ok {
		return fmt.Errorf("invalid data type for %s: %T", ViewInspectTimeline, data)
	}
	p := tea.NewProgram(NewTimelineModel(nav), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
