package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []string{" ", " ", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// Sparkline is a one-line scrolling chart of the last Width samples.
type Sparkline struct {
	Data   []float64
	Width  int
	Max    float64
	Style  lipgloss.Style
	Label  string

	// Ceiling, when positive, fixes the scale instead of using the window max.
	Ceiling float64
}

func NewSparkline(width int, label string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Width: width,
		Label: label,
		Style: style,
		Data:  make([]float64, 0, width),
	}
}

// NewPercentSparkline scales samples against 100.
func NewPercentSparkline(width int, label string, style lipgloss.Style) Sparkline {
	s := NewSparkline(width, label, style)
	s.Ceiling = 100
	return s
}

func (s *Sparkline) Add(val float64) {
	if val < 0 {
		val = 0
	}
	s.Data = append(s.Data, val)
	if len(s.Data) > s.Width {
		s.Data = s.Data[len(s.Data)-s.Width:]
	}

	if s.Ceiling > 0 {
		s.Max = s.Ceiling
		return
	}
	max := 0.0
	for _, v := range s.Data {
		if v > max {
			max = v
		}
	}
	s.Max = max
}

// Reset drops all samples, keeping size and scale.
func (s *Sparkline) Reset() {
	s.Data = s.Data[:0]
	if s.Ceiling <= 0 {
		s.Max = 0
	}
}

// Graph renders only the chart row.
func (s Sparkline) Graph() string {
	var graph strings.Builder
	for _, v := range s.Data {
		graph.WriteString(levels[s.level(v)])
	}
	if pad := s.Width - len(s.Data); pad > 0 {
		graph.WriteString(strings.Repeat(" ", pad))
	}
	return graph.String()
}

func (s Sparkline) level(v float64) int {
	if s.Max <= 0 {
		return 0
	}
	idx := int(v / s.Max * float64(len(levels)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(levels) {
		idx = len(levels) - 1
	}
	return idx
}

func (s Sparkline) View() string {
	if s.Width <= 0 {
		return ""
	}
	return s.Style.Render(s.Label) + "\n" + s.Style.Render(s.Graph())
}
