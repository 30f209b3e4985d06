package widgets

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
)

// Box renders a bordered pane with a title line.
type Box struct {
	Title      string
	TitleRight string
	Content    string
	Width      int
	Height     int
	accent     lipgloss.Color
	theme      styles.Theme
}

func NewBox(title string) Box {
	return Box{Title: title, theme: styles.DefaultTheme()}
}

func (b Box) WithContent(content string) Box {
	b.Content = content
	return b
}

// WithTitleRight sets muted text at the right end of the title line.
func (b Box) WithTitleRight(text string) Box {
	b.TitleRight = text
	return b
}

// WithSize sets outer dimensions; zero leaves a dimension unconstrained.
func (b Box) WithSize(width, height int) Box {
	b.Width = width
	b.Height = height
	return b
}

// WithAccent colors the border, e.g. by job outcome.
func (b Box) WithAccent(c lipgloss.Color) Box {
	b.accent = c
	return b
}

func (b Box) Render() string {
	innerWidth := b.Width - 2
	if innerWidth < 0 {
		innerWidth = 0
	}

	header := ""
	if b.Title != "" || b.TitleRight != "" {
		left := b.theme.Title.Render(b.Title)
		right := b.theme.TitleMuted.Render(b.TitleRight)
		gap := innerWidth - lipgloss.Width(left) - lipgloss.Width(right)
		if gap < 1 {
			gap = 1
		}
		header = lipgloss.JoinHorizontal(lipgloss.Top, left, lipgloss.NewStyle().Width(gap).Render(""), right)
	}

	body := b.Content
	if header != "" {
		body = header + "\n" + b.Content
	}

	style := b.theme.Border
	if b.accent != "" {
		style = style.BorderForeground(b.accent)
	}
	if b.Width > 0 {
		style = style.Width(innerWidth)
	}
	if b.Height > 0 {
		h := b.Height - 2
		if header != "" {
			h--
		}
		if h < 0 {
			h = 0
		}
		style = style.Height(h)
	}
	return style.Render(body)
}
