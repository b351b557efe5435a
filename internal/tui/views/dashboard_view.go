package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"crunch/internal/loadgen"
	"crunch/internal/stats"
	"crunch/internal/tui/components"
	"crunch/internal/tui/styles"
)

const sparkWidth = 40

type DashboardView struct {
	Stats    stats.Snapshot
	Viewport viewport.Model
	Progress progress.Model

	CPULine components.Sparkline
	MemLine components.Sparkline

	LastUpdate time.Time

	Width  int
	Height int
}

func NewDashboardView(width, height int) DashboardView {
	prog := progress.New(
		progress.WithGradient("#F25D27", "#04B575"),
		progress.WithWidth(max(width-10, 10)),
		progress.WithoutPercentage(),
	)

	return DashboardView{
		Viewport: viewport.New(max(width-6, 0), max(height-8, 0)),
		Progress: prog,
		CPULine:  components.NewPercentSparkline(sparkWidth, "Host CPU %", styles.Value),
		MemLine:  components.NewPercentSparkline(sparkWidth, "Host Memory %", styles.Active),
		Width:    width,
		Height:   height,
	}
}

func (m DashboardView) Init() tea.Cmd {
	return nil
}

func (m DashboardView) Update(msg tea.Msg) (DashboardView, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case stats.Snapshot:
		m.LastUpdate = time.Now()
		m.Stats = msg
		m.CPULine.Add(msg.CPUPercent)
		m.MemLine.Add(msg.MemoryPercent)
		cmds = append(cmds, m.Progress.SetPercent(msg.Progress()))

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 10
		m.Viewport.Width = msg.Width - 6
		m.Viewport.Height = msg.Height - 8

	case progress.FrameMsg:
		newModel, cmd := m.Progress.Update(msg)
		if newModel, ok := newModel.(progress.Model); ok {
			m.Progress = newModel
		}
		cmds = append(cmds, cmd)
	}

	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m DashboardView) View() string {
	s := strings.Builder{}
	s.WriteString(m.header())
	s.WriteString("\n\n")

	if m.Stats.Running {
		s.WriteString(m.Progress.View())
		s.WriteString("\n\n")
	}

	cpuVal := styles.Usage(m.Stats.CPUPercent).Render(fmt.Sprintf("%.1f%%", m.Stats.CPUPercent))
	memVal := styles.Usage(m.Stats.MemoryPercent).Render(fmt.Sprintf("%.1f%%", m.Stats.MemoryPercent))
	elapsedVal := styles.Text.Render("-")
	remainingVal := styles.Text.Render("-")
	if m.Stats.Running {
		elapsed := time.Duration(m.Stats.RunningTime * float64(time.Second))
		elapsedVal = styles.Text.Render(elapsed.Round(time.Second).String())
		if cfg := m.Stats.Config; cfg != nil {
			remaining := cfg.DurationTime() - elapsed
			if remaining < 0 {
				remaining = 0
			}
			remainingVal = styles.Text.Render(remaining.Round(time.Second).String())
		}
	}

	row1 := lipgloss.JoinHorizontal(lipgloss.Top,
		MakeCard("CPU", cpuVal),
		MakeCard("Memory", memVal),
		MakeCard("Elapsed", elapsedVal),
		MakeCard("Remaining", remainingVal),
	)
	s.WriteString(row1)
	s.WriteString("\n")

	c := m.Stats.Cycles
	row2 := lipgloss.JoinHorizontal(lipgloss.Top,
		MakeCard("Cycles", styles.Value.Render(fmt.Sprintf("%d", c.Cycles))),
		MakeCard("Duty", styles.Value.Render(fmt.Sprintf("%.1f%%", c.DutyPct))),
		MakeCard("P50 Busy", styles.Text.Render(fmt.Sprintf("%.1f ms", c.P50BusyMs))),
		MakeCard("P99 Busy", styles.Warn.Render(fmt.Sprintf("%.1f ms", c.P99BusyMs))),
	)
	s.WriteString(row2)
	s.WriteString("\n\n")

	s.WriteString(m.CPULine.View())
	s.WriteString("\n\n")
	s.WriteString(m.MemLine.View())

	content := styles.Panel.Width(m.Width - 6).Render(s.String())
	m.Viewport.SetContent(content)

	return m.Viewport.View()
}

func (m DashboardView) header() string {
	title := "Idle"
	detail := "Press Ctrl+R on the New Run view to start"
	switch m.Stats.Phase {
	case loadgen.PhaseRunning:
		title = "Run in Progress"
	case loadgen.PhaseStopping:
		title = "Stopping"
	}
	if cfg := m.Stats.Config; m.Stats.Running && cfg != nil {
		detail = fmt.Sprintf("%d%% on %d core(s) for %ds", cfg.Intensity, cfg.Cores, cfg.Duration)
	}

	return lipgloss.JoinHorizontal(lipgloss.Center,
		styles.Title.Render(title),
		lipgloss.NewStyle().MarginLeft(2).Foreground(styles.ColorSubtle).Render(detail),
	)
}

func MakeCard(title, value string) string {
	return styles.Box.Width(18).Align(lipgloss.Center).Render(
		fmt.Sprintf("%s\n%s", styles.Subtle.Render(title), value),
	)
}

// Reset clears samples from a previous run.
func (m *DashboardView) Reset() {
	m.Stats = stats.Snapshot{}
	m.CPULine.Reset()
	m.MemLine.Reset()
	m.Progress.SetPercent(0)
}
