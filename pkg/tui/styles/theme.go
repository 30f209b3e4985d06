package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/studioctl/pkg/progress"
)

// Theme defines the color palette and base styles for the job view.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	TextDim   lipgloss.Color

	Border     lipgloss.Style
	Title      lipgloss.Style
	TitleMuted lipgloss.Style
	Keybind    lipgloss.Style
	KeybindKey lipgloss.Style
	Console    lipgloss.Style
	Link       lipgloss.Style

	StatusRunning      lipgloss.Style
	StatusComplete     lipgloss.Style
	StatusFailed       lipgloss.Style
	StatusDisconnected lipgloss.Style
	StatusClosed       lipgloss.Style
}

func DefaultTheme() Theme {
	primary := lipgloss.Color("#7C3AED")   // Purple
	secondary := lipgloss.Color("#06B6D4") // Cyan
	success := lipgloss.Color("#22C55E")   // Green
	warning := lipgloss.Color("#EAB308")   // Yellow
	errorC := lipgloss.Color("#EF4444")    // Red
	muted := lipgloss.Color("#6B7280")     // Gray
	text := lipgloss.Color("#F9FAFB")      // White
	textDim := lipgloss.Color("#9CA3AF")   // Light gray

	return Theme{
		Primary:   primary,
		Secondary: secondary,
		Success:   success,
		Warning:   warning,
		Error:     errorC,
		Muted:     muted,
		Text:      text,
		TextDim:   textDim,

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(text),
		TitleMuted: lipgloss.NewStyle().
			Foreground(textDim),
		Keybind: lipgloss.NewStyle().
			Foreground(textDim),
		KeybindKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(secondary),
		Console: lipgloss.NewStyle().
			Foreground(text),
		Link: lipgloss.NewStyle().
			Underline(true).
			Foreground(secondary),

		StatusRunning:      lipgloss.NewStyle().Foreground(secondary),
		StatusComplete:     lipgloss.NewStyle().Foreground(success),
		StatusFailed:       lipgloss.NewStyle().Foreground(errorC),
		StatusDisconnected: lipgloss.NewStyle().Foreground(warning),
		StatusClosed:       lipgloss.NewStyle().Foreground(muted),
	}
}

// OutcomeStyle picks the status style for o.
func (t Theme) OutcomeStyle(o progress.Outcome) lipgloss.Style {
	switch o {
	case progress.OutcomeComplete:
		return t.StatusComplete
	case progress.OutcomeFailed:
		return t.StatusFailed
	case progress.OutcomeDisconnected:
		return t.StatusDisconnected
	default:
		return t.StatusRunning
	}
}
