package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders a horizontal bar with the percentage and, when known,
// the unit counter.
type ProgressBar struct {
	percent int
	current int
	total   int
	width   int
	style   lipgloss.Style
}

// NewProgressBar clamps percent to [0,100].
func NewProgressBar(percent int) ProgressBar {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return ProgressBar{percent: percent, width: 20}
}

func (p ProgressBar) WithWidth(width int) ProgressBar {
	if width < 5 {
		width = 5
	}
	p.width = width
	return p
}

func (p ProgressBar) WithStyle(style lipgloss.Style) ProgressBar {
	p.style = style
	return p
}

// WithUnits appends "current/total" after the percentage.
func (p ProgressBar) WithUnits(current, total int) ProgressBar {
	p.current, p.total = current, total
	return p
}

func (p ProgressBar) Render() string {
	filled := p.width * p.percent / 100
	bar := p.style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", p.width-filled)
	out := fmt.Sprintf("%s %3d%%", bar, p.percent)
	if p.total > 0 {
		out += fmt.Sprintf("  %d/%d", p.current, p.total)
	}
	return out
}
