package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"crunch/internal/history"
	"crunch/internal/loadgen"
	"crunch/internal/tui/styles"
)

type HistoryView struct {
	Store *history.Store
	Table table.Model

	items []history.Item

	SelectedConfig *loadgen.RunConfig // read and cleared by the parent

	Width  int
	Height int
}

func NewHistoryView(store *history.Store) HistoryView {
	columns := []table.Column{
		{Title: "Started", Width: 10},
		{Title: "Duration", Width: 10},
		{Title: "Intensity", Width: 10},
		{Title: "Cores", Width: 7},
		{Title: "Elapsed", Width: 10},
		{Title: "Reason", Width: 10},
		{Title: "Hung", Width: 6},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.ColorPrimary)

	s.Selected = s.Selected.
		Foreground(styles.ColorBg).
		Background(styles.ColorPrimary).
		Bold(true)

	t.SetStyles(s)

	m := HistoryView{
		Store: store,
		Table: t,
	}
	m.Refresh()
	return m
}

// Refresh reloads the table from the store, newest first.
func (m *HistoryView) Refresh() {
	if m.Store == nil {
		return
	}

	m.items = m.Store.List()
	rows := make([]table.Row, len(m.items))
	for i, item := range m.items {
		rows[i] = table.Row{
			item.StartedAt.Format("15:04:05"),
			fmt.Sprintf("%ds", item.Config.Duration),
			fmt.Sprintf("%d%%", item.Config.Intensity),
			fmt.Sprintf("%d", item.Config.Cores),
			fmt.Sprintf("%.1fs", item.Elapsed),
			string(item.Reason),
			fmt.Sprintf("%d", item.HungWorkers),
		}
	}
	m.Table.SetRows(rows)
}

func (m HistoryView) Init() tea.Cmd {
	return nil
}

func (m HistoryView) Update(msg tea.Msg) (HistoryView, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
		m.Table.SetHeight(msg.Height - 6)

	case tea.KeyMsg:
		if msg.String() == "enter" {
			if item := m.GetSelectedItem(); item != nil {
				cfg := item.Config
				m.SelectedConfig = &cfg
				return m, nil
			}
		}
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m HistoryView) View() string {
	s := strings.Builder{}
	s.WriteString(styles.Title.Render("Past Runs"))
	s.WriteString("\n\n")

	if len(m.items) == 0 {
		s.WriteString(styles.Subtle.Render("No history found.\nRun a test to generate data."))
	} else {
		s.WriteString(styles.Box.Render(m.Table.View()))
	}
	s.WriteString("\n\n")
	s.WriteString(styles.Subtle.Render("[Enter] Replay  [Ctrl+P] Export Selected"))
	return s.String()
}

func (m HistoryView) GetSelectedItem() *history.Item {
	idx := m.Table.Cursor()
	if idx >= 0 && idx < len(m.items) {
		item := m.items[idx]
		return &item
	}
	return nil
}
