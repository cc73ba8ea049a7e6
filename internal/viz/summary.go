package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one labelled line of a summary panel.
type Field struct {
	Label string
	Value string
}

// Summary renders a titled panel of fields followed by the metrics sorted by
// name. Rate-like metrics (names ending in _rate) get a progress bar.
func Summary(title string, fields []Field, metrics map[string]float64) string {
	var lines []string
	lines = append(lines, Title.Render(title), "")

	for _, f := range fields {
		lines = append(lines, Label.Render(f.Label)+Value.Render(f.Value))
	}

	if len(metrics) > 0 {
		lines = append(lines, "")
		names := make([]string, 0, len(metrics))
		for name := range metrics {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			v := metrics[name]
			line := Label.Render(name) + Value.Render(fmt.Sprintf("%.4f", v))
			if strings.HasSuffix(name, "_rate") {
				line += "  " + ProgressBar(v, 20)
			}
			lines = append(lines, line)
		}
	}

	return Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
