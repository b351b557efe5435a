package views

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pingcap/errors"

	"crunch/internal/loadgen"
	"crunch/internal/tui/styles"
)

// Field indices
const (
	FieldDuration = iota
	FieldIntensity
	FieldCores
	fieldCount
)

var fieldNames = [fieldCount]string{"duration", "intensity", "cores"}

// FormView edits the configuration of the next run.
type FormView struct {
	Inputs   []textinput.Model
	Focus    int
	MaxCores int

	Viewport viewport.Model

	Width  int
	Height int
}

func NewFormView(initial loadgen.RunConfig, maxCores int) FormView {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].PromptStyle = styles.Subtle
		inputs[i].TextStyle = styles.Subtle
		inputs[i].Width = 10
		inputs[i].CharLimit = 5
	}

	inputs[FieldDuration].Prompt = "Duration (s): "
	inputs[FieldDuration].SetValue(strconv.Itoa(initial.Duration))

	inputs[FieldIntensity].Prompt = "Intensity (%): "
	inputs[FieldIntensity].SetValue(strconv.Itoa(initial.Intensity))

	inputs[FieldCores].Prompt = "Cores: "
	inputs[FieldCores].SetValue(strconv.Itoa(initial.Cores))

	m := FormView{
		Inputs:   inputs,
		MaxCores: maxCores,
		Viewport: viewport.New(0, 0),
	}
	m, _ = m.focusCmd()
	return m
}

func (m FormView) Init() tea.Cmd {
	return textinput.Blink
}

func (m FormView) Update(msg tea.Msg) (FormView, tea.Cmd) {
	var cmds []tea.Cmd

	dir := 0
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down", "enter":
			dir = 1
		case "shift+tab", "up":
			dir = -1
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Viewport.Width = msg.Width - 4
		m.Viewport.Height = msg.Height - 8
	}

	if dir != 0 {
		m.Focus = (m.Focus + dir + fieldCount) % fieldCount
		var cmd tea.Cmd
		m, cmd = m.focusCmd()
		cmds = append(cmds, cmd)
	} else {
		var cmd tea.Cmd
		m.Inputs[m.Focus], cmd = m.Inputs[m.Focus].Update(msg)
		cmds = append(cmds, cmd)
	}

	var vpCmd tea.Cmd
	m.Viewport, vpCmd = m.Viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

func (m FormView) focusCmd() (FormView, tea.Cmd) {
	cmds := make([]tea.Cmd, 0, len(m.Inputs))
	for i := range m.Inputs {
		if i == m.Focus {
			cmds = append(cmds, m.Inputs[i].Focus())
			m.Inputs[i].PromptStyle = styles.Active
			m.Inputs[i].TextStyle = styles.Text
		} else {
			m.Inputs[i].Blur()
			m.Inputs[i].PromptStyle = styles.Subtle
			m.Inputs[i].TextStyle = styles.Subtle
		}
	}
	return m, tea.Batch(cmds...)
}

// GetConfig parses the inputs. Only the integer syntax is checked here; bounds
// are enforced by the controller.
func (m FormView) GetConfig() (loadgen.RunConfig, error) {
	var vals [fieldCount]int
	for i := range vals {
		raw := strings.TrimSpace(m.Inputs[i].Value())
		n, err := strconv.Atoi(raw)
		if err != nil {
			return loadgen.RunConfig{}, errors.Errorf("%s must be an integer, got %q", fieldNames[i], raw)
		}
		vals[i] = n
	}
	return loadgen.RunConfig{
		Duration:  vals[FieldDuration],
		Intensity: vals[FieldIntensity],
		Cores:     vals[FieldCores],
	}, nil
}

func (m FormView) GetHelp() string {
	switch m.Focus {
	case FieldDuration:
		return "How long the run lasts, in seconds.\nThe run stops by itself when it expires.\n\nRange: 1 - 3600"
	case FieldIntensity:
		return "Share of each 100ms cycle a worker spends computing.\nThe rest of the cycle is spent sleeping.\n\nRange: 1 - 100"
	case FieldCores:
		return "Number of workers, one per core.\n\nRange: 1 - " + strconv.Itoa(m.MaxCores)
	}
	return ""
}

func (m FormView) View() string {
	inputCol := strings.Builder{}
	inputCol.WriteString("\n")
	for i := range m.Inputs {
		inputCol.WriteString(m.renderInput(i))
		inputCol.WriteString("\n")
	}

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.ColorBorder).
		Padding(1, 2).
		Width(45).
		Height(10)

	helpCol := strings.Builder{}
	helpCol.WriteString(styles.Subtle.Bold(true).Render("Information"))
	helpCol.WriteString("\n\n")
	helpCol.WriteString(styles.Text.Foreground(styles.ColorSecondary).Render(m.GetHelp()))

	mainRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(35).Render(inputCol.String()),
		helpBox.Render(helpCol.String()),
	)

	m.Viewport.SetContent(mainRow)
	return m.Viewport.View()
}

func (m FormView) renderInput(idx int) string {
	style := styles.InputNormal
	if idx == m.Focus {
		style = styles.InputActive
	}
	return style.Render(m.Inputs[idx].View())
}
