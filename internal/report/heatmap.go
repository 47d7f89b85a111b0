package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/sitelens-cli/internal/stats"
	"github.com/charmbracelet/lipgloss"
)

// coolwarm runs from strong negative (blue) through neutral to strong positive (red).
var coolwarm = []lipgloss.Color{"21", "33", "75", "153", "252", "217", "209", "196", "160"}

var (
	heatHeader = lipgloss.NewStyle().Bold(true)
	heatLabel  = lipgloss.NewStyle().Bold(true).Align(lipgloss.Right)
)

// HeatColor picks the palette entry for a coefficient in [-1, 1].
func HeatColor(r float64) lipgloss.Color {
	if math.IsNaN(r) {
		return coolwarm[len(coolwarm)/2]
	}
	r = math.Max(-1, math.Min(1, r))
	i := int(math.Round((r + 1) / 2 * float64(len(coolwarm)-1)))
	return coolwarm[i]
}

// Heatmap renders the correlation matrix as coloured, annotated cells.
func Heatmap(m *stats.CorrMatrix) string {
	labelW := 0
	for _, c := range m.Columns {
		labelW = max(labelW, len(c))
	}
	const cellW = 9
	short := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		short[i] = abbreviate(c, cellW-1)
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", labelW+1))
	for _, s := range short {
		b.WriteString(heatHeader.Width(cellW).Align(lipgloss.Center).Render(s))
	}
	b.WriteString("\n")
	for i, name := range m.Columns {
		b.WriteString(heatLabel.Width(labelW).Render(name))
		b.WriteString(" ")
		for _, v := range m.Values[i] {
			bg := HeatColor(v)
			fg := lipgloss.Color("0")
			if math.Abs(v) > 0.6 {
				fg = lipgloss.Color("255")
			}
			cell := lipgloss.NewStyle().Background(bg).Foreground(fg).Width(cellW).Align(lipgloss.Center)
			b.WriteString(cell.Render(fmt.Sprintf("%.2f", v)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// abbreviate fits a snake_case label into width by truncating each word.
func abbreviate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	parts := strings.Split(s, "_")
	for n := 3; n >= 1; n-- {
		out := make([]string, len(parts))
		for i, p := range parts {
			if len(p) > n {
				p = p[:n]
			}
			out[i] = p
		}
		if j := strings.Join(out, "_"); len(j) <= width {
			return j
		}
	}
	return s[:width]
}
