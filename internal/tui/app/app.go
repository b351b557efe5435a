package app

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"crunch/internal/history"
	"crunch/internal/loadgen"
	"crunch/internal/stats"
	"crunch/internal/tui/styles"
	"crunch/internal/tui/views"
)

type ClearStatusMsg struct{}

func clearStatusCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(_ time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

type ViewID int

const (
	ViewForm ViewID = iota
	ViewDashboard
	ViewHistory
)

type StatsMsg stats.Snapshot

// stoppedMsg is sent once a Stop issued from the UI has returned.
type stoppedMsg struct{ quit bool }

// Controller is the part of loadgen.Controller the UI drives.
type Controller interface {
	Start(cfg loadgen.RunConfig) (loadgen.RunState, error)
	Stop()
	MaxCores() int
}

type Model struct {
	Ctrl    Controller
	Store   *history.Store
	Updates stats.UpdateChan
	Log     *zap.Logger

	// ExportDir is where Ctrl+P writes files.
	ExportDir string

	RunActive bool
	RunID     string
	Stopping  bool

	Width  int
	Height int

	CurrentView ViewID
	MenuItems   []string

	FormView    views.FormView
	DashView    views.DashboardView
	HistoryView views.HistoryView

	StatusMsg string
}

// DefaultConfig is the form's initial value: 300s at 80% on every core.
func DefaultConfig(maxCores int) loadgen.RunConfig {
	return loadgen.RunConfig{Duration: 300, Intensity: 80, Cores: maxCores}
}

func NewModel(ctrl Controller, updates stats.UpdateChan, store *history.Store, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	maxCores := ctrl.MaxCores()
	return Model{
		Ctrl:        ctrl,
		Updates:     updates,
		Store:       store,
		Log:         log,
		ExportDir:   ".",
		CurrentView: ViewForm,
		MenuItems:   []string{"[1] New Run", "[2] Dashboard", "[3] History"},
		FormView:    views.NewFormView(DefaultConfig(maxCores), maxCores),
		DashView:    views.NewDashboardView(0, 0),
		HistoryView: views.NewHistoryView(store),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.FormView.Init(),
		waitForUpdate(m.Updates),
	)
}

func waitForUpdate(sub stats.UpdateChan) tea.Cmd {
	return func() tea.Msg {
		return StatsMsg(<-sub)
	}
}

// stopCmd runs Stop off the UI goroutine; it can block for the grace period.
func stopCmd(ctrl Controller, quit bool) tea.Cmd {
	return func() tea.Msg {
		ctrl.Stop()
		return stoppedMsg{quit: quit}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case ClearStatusMsg:
		m.StatusMsg = ""
		return m, nil

	case stoppedMsg:
		m.Stopping = false
		if msg.quit {
			return m, tea.Quit
		}
		m.finishRun()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+q":
			if m.RunActive {
				m.StatusMsg = "Stopping run before exit..."
				m.Stopping = true
				return m, stopCmd(m.Ctrl, true)
			}
			return m, tea.Quit

		case "ctrl+d":
			m.CurrentView = ViewDashboard
			return m, nil

		case "ctrl+h":
			m.HistoryView.Refresh()
			m.CurrentView = ViewHistory
			return m, nil

		case "ctrl+right":
			m.CurrentView++
			if m.CurrentView > ViewHistory {
				m.CurrentView = ViewForm
			}
			return m, nil
		case "ctrl+left":
			m.CurrentView--
			if m.CurrentView < ViewForm {
				m.CurrentView = ViewHistory
			}
			return m, nil

		case "ctrl+r":
			if m.CurrentView == ViewForm {
				return m, m.startRun()
			}
			return m, nil

		case "ctrl+s":
			if m.RunActive && !m.Stopping {
				m.Stopping = true
				m.StatusMsg = "Stopping run..."
				return m, stopCmd(m.Ctrl, false)
			}
			return m, nil

		case "ctrl+p":
			if m.CurrentView == ViewHistory {
				return m, m.exportSelected()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		contentHeight := m.Height - 7
		sized := tea.WindowSizeMsg{Width: m.Width, Height: contentHeight}

		m.FormView, _ = m.FormView.Update(sized)
		m.DashView, _ = m.DashView.Update(sized)
		m.HistoryView, _ = m.HistoryView.Update(sized)
		return m, nil

	case StatsMsg:
		snap := stats.Snapshot(msg)
		var c tea.Cmd
		m.DashView, c = m.DashView.Update(snap)
		cmds = append(cmds, c)

		// Expired runs end without a key press.
		if m.RunActive && !m.Stopping && (!snap.Running || snap.RunID != m.RunID) {
			m.finishRun()
		}

		cmds = append(cmds, waitForUpdate(m.Updates))
		return m, tea.Batch(cmds...)
	}

	var defaultCmd tea.Cmd
	switch m.CurrentView {
	case ViewForm:
		m.FormView, defaultCmd = m.FormView.Update(msg)
	case ViewDashboard:
		m.DashView, defaultCmd = m.DashView.Update(msg)
	case ViewHistory:
		m.HistoryView, defaultCmd = m.HistoryView.Update(msg)
		if cfg := m.HistoryView.SelectedConfig; cfg != nil {
			m.HistoryView.SelectedConfig = nil
			m.FormView = views.NewFormView(*cfg, m.Ctrl.MaxCores())
			m.CurrentView = ViewForm
		}
	}
	cmds = append(cmds, defaultCmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) startRun() tea.Cmd {
	cfg, err := m.FormView.GetConfig()
	if err == nil {
		var state loadgen.RunState
		state, err = m.Ctrl.Start(cfg)
		if err == nil {
			m.RunActive = true
			m.RunID = state.RunID
			m.DashView.Reset()
			m.CurrentView = ViewDashboard
			m.StatusMsg = ""
			return nil
		}
	}
	m.Log.Info("run not started", zap.Error(err))
	m.StatusMsg = fmt.Sprintf("Cannot start: %v", err)
	return clearStatusCmd()
}

func (m *Model) finishRun() {
	m.RunActive = false
	m.RunID = ""
	m.StatusMsg = ""
	m.HistoryView.Refresh()
	m.CurrentView = ViewHistory
}

func (m *Model) exportSelected() tea.Cmd {
	item := m.HistoryView.GetSelectedItem()
	if item == nil {
		m.StatusMsg = "No run selected."
		return clearStatusCmd()
	}
	base, err := exportItem(*item, m.ExportDir)
	if err != nil {
		m.Log.Warn("export failed", zap.String("run", item.ID), zap.Error(err))
		m.StatusMsg = fmt.Sprintf("Export Failed: %v", err)
	} else {
		m.StatusMsg = fmt.Sprintf("Exported run to %s.{csv,json}", base)
	}
	return clearStatusCmd()
}

func (m Model) View() string {
	if m.Width == 0 {
		return "Loading..."
	}

	nav := strings.Builder{}
	for i, item := range m.MenuItems {
		if ViewID(i) == m.CurrentView {
			nav.WriteString(styles.TabActive.Render(item))
		} else {
			nav.WriteString(styles.TabBase.Render(item))
		}
	}
	navBar := styles.FooterBase.Width(m.Width).Render(nav.String())

	contentStr := ""
	switch m.CurrentView {
	case ViewForm:
		contentStr = m.FormView.View()
	case ViewDashboard:
		contentStr = m.DashView.View()
	case ViewHistory:
		contentStr = m.HistoryView.View()
	}

	content := styles.Panel.Width(m.Width - 2).Height(m.Height - 6).Render(contentStr)

	keys1 := []string{
		styles.RenderKey("Ctrl+<->", "View"),
		styles.RenderKey("Tab", "Field"),
		styles.RenderKey("Enter", "Replay"),
	}
	keys2 := []string{
		styles.RenderKey("Ctrl+R", "Run"),
		styles.RenderKey("Ctrl+S", "Stop"),
		styles.RenderKey("Ctrl+P", "Export"),
		styles.RenderKey("Ctrl+Q", "Quit"),
	}
	keys3 := []string{
		styles.RenderKey("Ctrl+D", "Dash"),
		styles.RenderKey("Ctrl+H", "Hist"),
	}

	footer := lipgloss.JoinVertical(lipgloss.Left,
		styles.FooterBase.Width(m.Width).Render(strings.Join(keys1, "   ")),
		styles.FooterBase.Width(m.Width).Render(strings.Join(keys2, "   ")),
		styles.FooterBase.Width(m.Width).Render(strings.Join(keys3, "   ")),
	)

	if m.StatusMsg != "" {
		status := styles.Box.BorderForeground(styles.ColorHighlight).Render(m.StatusMsg)
		return lipgloss.JoinVertical(lipgloss.Left, navBar, content, status, footer)
	}

	return lipgloss.JoinVertical(lipgloss.Left, navBar, content, footer)
}
