package output

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// table 按列宽对齐的简单表格
type table struct {
	st      styles
	headers []string
	rows    [][]string
	widths  []int
}

func newTable(st styles, headers ...string) *table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &table{st: st, headers: headers, widths: widths}
}

func (t *table) addRow(values ...string) {
	row := make([]string, len(t.headers))
	for i := range t.headers {
		if i < len(values) {
			row[i] = values[i]
		}
		t.widths[i] = max(t.widths[i], lipgloss.Width(row[i]))
	}
	t.rows = append(t.rows, row)
}

func (t *table) render() string {
	var sb strings.Builder
	t.writeRow(&sb, t.headers, t.st.header)
	for i, w := range t.widths {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(t.st.muted.Render(strings.Repeat("─", w)))
	}
	sb.WriteString("\n")
	for _, row := range t.rows {
		t.writeRow(&sb, row, lipgloss.NewStyle())
	}
	return sb.String()
}

func (t *table) writeRow(sb *strings.Builder, cells []string, style lipgloss.Style) {
	for i, cell := range cells {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(style.Render(cell))
		if i < len(cells)-1 {
			sb.WriteString(strings.Repeat(" ", t.widths[i]-lipgloss.Width(cell)))
		}
	}
	sb.WriteString("\n")
}
