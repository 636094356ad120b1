package tui

import (
	"fmt"
	"strings"

	"aks/internal/transcript"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HistoryModel browses transcript records, newest first.
type HistoryModel struct {
	list       list.Model
	viewport   viewport.Model
	records    []transcript.Record
	selected   int
	width      int
	height     int
	showDetail bool
	quitting   bool
}

type recordItem struct {
	record transcript.Record
	index  int
}

type keyMap struct {
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "view details"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "b"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (i recordItem) Title() string {
	q := strings.Join(strings.Fields(i.record.Query), " ")
	if len([]rune(q)) > 60 {
		q = string([]rune(q)[:57]) + "..."
	}

	status := "✓"
	if i.record.Cached {
		status = "↺"
	}
	return fmt.Sprintf("%s [%d] %s", status, i.index+1, q)
}

func (i recordItem) Description() string {
	return fmt.Sprintf("%s • %s (%s)",
		i.record.Date.Format("2006-01-02 15:04"),
		i.record.Provider,
		i.record.Model)
}

func (i recordItem) FilterValue() string {
	return i.record.Query
}

// HistoryView lists records in reverse order so the latest answer is on top.
func HistoryView(records []transcript.Record) HistoryModel {
	items := make([]list.Item, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		items = append(items, recordItem{record: records[i], index: i})
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Query History"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)

	return HistoryModel{
		list:     l,
		viewport: viewport.New(0, 0),
		records:  records,
	}
}

func (m HistoryModel) Init() tea.Cmd {
	return nil
}

func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		h, v := lipgloss.NewStyle().GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 6

	case tea.KeyMsg:
		if m.showDetail {
			if key.Matches(msg, keys.Back) || msg.String() == "q" {
				m.showDetail = false
				return m, nil
			}
			break
		}

		// keys belong to the filter input while filtering
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Enter):
			item, ok := m.list.SelectedItem().(recordItem)
			if !ok {
				return m, nil
			}
			m.selected = item.index
			m.showDetail = true
			m.viewport.SetContent(m.renderDetail())
			m.viewport.GotoTop()
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.showDetail {
		m.viewport, cmd = m.viewport.Update(msg)
	} else {
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}
	if m.showDetail {
		return m.renderDetailView()
	}
	return m.renderListView()
}

func (m HistoryModel) renderListView() string {
	helpStyle := lipgloss.NewStyle().Foreground(mutedColor).Padding(1, 0)
	return m.list.View() + "\n" + helpStyle.Render("enter: view • /: filter • q: quit")
}

func (m HistoryModel) renderDetailView() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor).
		Padding(0, 1).
		Width(max(m.width-2, 0))

	contentStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1).
		Width(max(m.width-4, 0))

	helpStyle := lipgloss.NewStyle().Foreground(mutedColor)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Query %d of %d", m.selected+1, len(m.records))))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("↑/↓: scroll • %d%% • esc: back", int(m.viewport.ScrollPercent()*100))))
	return b.String()
}

func (m HistoryModel) renderDetail() string {
	if m.selected >= len(m.records) {
		return "Invalid selection"
	}
	return RenderRecord(m.records[m.selected], m.width-8)
}

// RenderRecord formats one record for display, wrapping the query at width.
func RenderRecord(r transcript.Record, width int) string {
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(primaryColor)

	var b strings.Builder
	b.WriteString(labelStyle.Render("Query:"))
	b.WriteString("\n")
	b.WriteString(wrapText(r.Query, width))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Response:"))
	b.WriteString("\n")
	b.WriteString(r.Response)
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Metadata:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Date:     %s\n", r.Date.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "  Provider: %s\n", r.Provider)
	fmt.Fprintf(&b, "  Model:    %s\n", r.Model)
	fmt.Fprintf(&b, "  Source:   %s\n", r.Source)
	if r.Cached {
		b.WriteString("  Cached:   yes\n")
	}
	return b.String()
}

// wrapText re-flows each paragraph of text to width columns.
func wrapText(text string, width int) string {
	if width <= 0 {
		width = 80
	}

	paragraphs := strings.Split(text, "\n")
	for i, p := range paragraphs {
		var line, out strings.Builder
		n := 0
		for _, word := range strings.Fields(p) {
			wl := len([]rune(word))
			if n > 0 && n+1+wl > width {
				out.WriteString(line.String())
				out.WriteString("\n")
				line.Reset()
				n = 0
			}
			if n > 0 {
				line.WriteString(" ")
				n++
			}
			line.WriteString(word)
			n += wl
		}
		out.WriteString(line.String())
		paragraphs[i] = out.String()
	}
	return strings.Join(paragraphs, "\n")
}
