package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 2)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	Label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888899")).
		Width(18)

	Value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00ccff")).
		Bold(true)

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	Good = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	Fair = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	Poor = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// rateStyle colours a fraction in [0, 1].
func rateStyle(v float64) lipgloss.Style {
	switch {
	case v >= 0.7:
		return Good
	case v >= 0.3:
		return Fair
	default:
		return Poor
	}
}

// ProgressBar renders fraction (clamped to [0, 1]) as a bar of width cells.
func ProgressBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	fraction = max(0, min(1, fraction))
	filled := int(fraction * float64(width))

	return rateStyle(fraction).Render(strings.Repeat("█", filled)) +
		Subtle.Render(strings.Repeat("░", width-filled))
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline squeezes values in [0, 1] into at most width cells by averaging
// neighbouring samples.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if width > len(values) {
		width = len(values)
	}

	var b strings.Builder
	for c := 0; c < width; c++ {
		lo := c * len(values) / width
		hi := (c + 1) * len(values) / width
		sum := 0.0
		for _, v := range values[lo:hi] {
			sum += v
		}
		avg := max(0, min(1, sum/float64(hi-lo)))
		idx := int(avg * float64(len(sparkBlocks)-1))
		b.WriteString(rateStyle(avg).Render(string(sparkBlocks[idx])))
	}
	return b.String()
}
