package widgets

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/studioctl/pkg/progress"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
)

type Keybind struct {
	Key   string
	Label string
}

// Header renders the job title bar: name, outcome, elapsed time, keybinds.
type Header struct {
	Title    string
	Outcome  progress.Outcome
	Closed   bool
	Elapsed  time.Duration
	Width    int
	Keybinds []Keybind
	theme    styles.Theme
}

func NewHeader(title string) Header {
	return Header{Title: title, theme: styles.DefaultTheme()}
}

func (h Header) WithOutcome(o progress.Outcome, closed bool) Header {
	h.Outcome = o
	h.Closed = closed
	return h
}

func (h Header) WithElapsed(d time.Duration) Header {
	h.Elapsed = d
	return h
}

func (h Header) WithKeybinds(kb []Keybind) Header {
	h.Keybinds = kb
	return h
}

func (h Header) WithWidth(w int) Header {
	h.Width = w
	return h
}

func (h Header) Render() string {
	theme := h.theme

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Text).
		Background(theme.Primary).
		Padding(0, 1).
		Render(h.Title)

	left := title
	if h.Outcome != "" {
		style, icon, label := theme.OutcomeStyle(h.Outcome), styles.OutcomeIcon(h.Outcome), string(h.Outcome)
		if h.Closed {
			style, icon, label = theme.StatusClosed, styles.IconClosed, "closed"
		}
		left = lipgloss.JoinHorizontal(lipgloss.Center, left, "  ", style.Render(icon+" "+label))
	}

	right := ""
	if h.Elapsed > 0 {
		right = theme.TitleMuted.Render("Elapsed: " + progress.FormatDuration(h.Elapsed))
	}
	if len(h.Keybinds) > 0 {
		kb := RenderKeybinds(h.Keybinds, theme)
		if right != "" {
			right = lipgloss.JoinHorizontal(lipgloss.Center, right, "  ", kb)
		} else {
			right = kb
		}
	}

	gap := h.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, left, lipgloss.NewStyle().Width(gap).Render(""), right)

	sepWidth := h.Width
	if sepWidth <= 0 {
		sepWidth = 80
	}
	sep := lipgloss.NewStyle().Foreground(theme.Muted).Render(strings.Repeat("━", sepWidth))
	return lipgloss.JoinVertical(lipgloss.Left, line, sep)
}

func RenderKeybinds(keybinds []Keybind, theme styles.Theme) string {
	parts := make([]string, 0, len(keybinds)*2)
	for i, kb := range keybinds {
		if i > 0 {
			parts = append(parts, " ")
		}
		parts = append(parts, theme.KeybindKey.Render("["+kb.Key+"]"), theme.Keybind.Render(" "+kb.Label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}
