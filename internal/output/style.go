// Package output renders scores, events and history for the terminal.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	colorGreen  = lipgloss.Color("#66bb6a")
	colorYellow = lipgloss.Color("#fdd835")
	colorOrange = lipgloss.Color("#ffa726")
	colorRed    = lipgloss.Color("#ef5350")
	colorBlue   = lipgloss.Color("#64b5f6")
	colorMuted  = lipgloss.Color("#888888")
)

// styles 一组渲染样式，关闭颜色时全部为空样式
type styles struct {
	header lipgloss.Style
	label  lipgloss.Style
	muted  lipgloss.Style
	bold   lipgloss.Style
	error  lipgloss.Style
	band   map[string]lipgloss.Style // green/yellow/orange/red
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{
			header: plain,
			label:  plain.Width(16),
			muted:  plain,
			bold:   plain,
			error:  plain,
			band: map[string]lipgloss.Style{
				"green": plain, "yellow": plain, "orange": plain, "red": plain,
			},
		}
	}
	return styles{
		header: lipgloss.NewStyle().Foreground(colorBlue).Bold(true),
		label:  lipgloss.NewStyle().Width(16),
		muted:  lipgloss.NewStyle().Foreground(colorMuted),
		bold:   lipgloss.NewStyle().Bold(true),
		error:  lipgloss.NewStyle().Foreground(colorRed).Bold(true),
		band: map[string]lipgloss.Style{
			"green":  lipgloss.NewStyle().Foreground(colorGreen),
			"yellow": lipgloss.NewStyle().Foreground(colorYellow),
			"orange": lipgloss.NewStyle().Foreground(colorOrange),
			"red":    lipgloss.NewStyle().Foreground(colorRed),
		},
	}
}

// Band 按百分比选颜色档位：>=80 green, >=60 yellow, >=40 orange, 其余 red
func Band(percent int) string {
	switch {
	case percent >= 80:
		return "green"
	case percent >= 60:
		return "yellow"
	case percent >= 40:
		return "orange"
	default:
		return "red"
	}
}

// ColorEnabled 只有写到终端且没有 --no-color 时才上色
func ColorEnabled(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
