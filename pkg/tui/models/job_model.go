package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/studioctl/pkg/progress"
	"github.com/go-go-golems/studioctl/pkg/tui"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
	"github.com/go-go-golems/studioctl/pkg/tui/widgets"
)

type JobOptions struct {
	Kind string
	// Publisher carries close requests to the stream manager.
	Publisher message.Publisher
	// OutputURL builds the download link shown next to each artifact. Optional.
	OutputURL func(path string) string
	Now       func() time.Time
}

// JobModel renders one job's progress from stream bus messages.
type JobModel struct {
	kind   string
	width  int
	height int

	state progress.State
	gen   uint64
	seq   uint64

	startedAt    time.Time
	finishedAt   time.Time
	ended        bool
	closedByUser bool
	closing      bool
	notice       string

	spin spinner.Model
	vp   viewport.Model

	pub       message.Publisher
	outputURL func(string) string
	now       func() time.Time
}

func NewJobModel(opts JobOptions) JobModel {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.DefaultTheme().StatusRunning

	m := JobModel{
		kind:      opts.Kind,
		state:     progress.New(opts.Kind),
		spin:      sp,
		vp:        viewport.New(0, 0),
		pub:       opts.Publisher,
		outputURL: opts.OutputURL,
		now:       now,
	}
	m.startedAt = now()
	return m
}

func (m JobModel) Init() tea.Cmd { return m.spin.Tick }

func (m JobModel) State() progress.State { return m.state.Clone() }

func (m JobModel) Ended() bool { return m.ended }

func (m JobModel) ClosedByUser() bool { return m.closedByUser }

func (m JobModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		m = m.resizeViewport()
		return m, nil

	case tea.KeyMsg:
		switch v.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "x":
			if m.ended || m.closing {
				return m, nil
			}
			m.closing = true
			m.notice = "Closing stream..."
			return m, tui.CloseStreamCmd(m.pub, m.kind)
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(v)
		return m, cmd

	case spinner.TickMsg:
		if !m.spinning() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(v)
		return m, cmd

	case tui.StreamStartedMsg:
		if v.Started.Kind != m.kind || v.Started.Gen <= m.gen {
			return m, nil
		}
		return m.adopt(v.Started.Gen, v.Started.At)

	case tui.StreamUpdateMsg:
		u := v.Update
		if u.Kind != m.kind || u.Gen < m.gen {
			return m, nil
		}
		var cmd tea.Cmd
		if u.Gen > m.gen {
			m, cmd = m.adopt(u.Gen, time.Time{})
		}
		if m.ended || u.Seq <= m.seq {
			return m, cmd
		}
		m.seq = u.Seq
		m = m.setState(u.State)
		return m, cmd

	case tui.StreamEndedMsg:
		if v.End.Kind != m.kind || v.End.Gen < m.gen {
			return m, nil
		}
		if v.End.Gen > m.gen {
			m, _ = m.adopt(v.End.Gen, time.Time{})
		}
		m.ended = true
		m.closing = false
		m.closedByUser = v.End.ClosedByUser
		m.finishedAt = v.End.At
		m.notice = ""
		m = m.setState(v.End.State)
		return m, nil

	case tui.CloseResultMsg:
		if v.Err != nil {
			m.closing = false
			m.notice = "close failed: " + v.Err.Error()
		}
		return m, nil
	}
	return m, nil
}

// adopt switches the model to a newer stream generation. Envelopes of older
// generations are dropped from then on, whatever order the bus delivers them in.
func (m JobModel) adopt(gen uint64, at time.Time) (JobModel, tea.Cmd) {
	restart := m.ended || !m.spinning()
	m = m.reset(at)
	m.gen = gen
	if restart {
		return m, m.spin.Tick
	}
	return m, nil
}

func (m JobModel) reset(at time.Time) JobModel {
	m.state = progress.New(m.kind)
	m.seq = 0
	m.ended = false
	m.closedByUser = false
	m.closing = false
	m.notice = ""
	m.finishedAt = time.Time{}
	if !at.IsZero() {
		m.startedAt = at
	}
	return m.refreshConsole(true)
}

func (m JobModel) setState(s progress.State) JobModel {
	follow := m.vp.AtBottom() || m.vp.TotalLineCount() == 0
	m.state = s.Clone()
	return m.refreshConsole(follow)
}

func (m JobModel) spinning() bool {
	return !m.ended && m.state.Busy && m.state.Outcome == progress.OutcomeRunning
}

func (m JobModel) View() string {
	theme := styles.DefaultTheme()

	header := widgets.NewHeader(progress.DisplayKind(m.kind)).
		WithOutcome(m.state.Outcome, m.closedByUser).
		WithElapsed(m.elapsed()).
		WithKeybinds([]widgets.Keybind{
			{Key: "↑/↓", Label: "scroll"},
			{Key: "x", Label: "close stream"},
			{Key: "q", Label: "quit"},
		}).
		WithWidth(m.width).
		Render()

	sections := []string{header, m.renderStatus(theme)}
	if m.state.HasTotal() {
		sections = append(sections, widgets.NewProgressBar(m.state.Percent).
			WithWidth(maxInt(10, m.width-20)).
			WithStyle(theme.OutcomeStyle(m.state.Outcome)).
			WithUnits(m.state.Current, m.state.Total).
			Render())
	}
	sections = append(sections, "", m.renderConsole())
	if len(m.state.Artifacts) > 0 {
		sections = append(sections, m.renderArtifacts(theme))
	}
	if banner := m.renderBanner(theme); banner != "" {
		sections = append(sections, banner)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m JobModel) renderStatus(theme styles.Theme) string {
	status := m.state.Status
	if m.notice != "" {
		status = status + "  " + theme.TitleMuted.Render(m.notice)
	}
	if m.spinning() {
		return m.spin.View() + " " + status
	}
	return theme.OutcomeStyle(m.state.Outcome).Render(styles.OutcomeIcon(m.state.Outcome)) + " " + status
}

func (m JobModel) renderConsole() string {
	right := ""
	if !m.vp.AtBottom() {
		right = fmt.Sprintf("%3.f%%", m.vp.ScrollPercent()*100)
	}
	return widgets.NewBox("Console").
		WithTitleRight(right).
		WithContent(m.vp.View()).
		WithSize(m.width, m.consoleHeight()+3).
		Render()
}

func (m JobModel) renderArtifacts(theme styles.Theme) string {
	lines := make([]string, 0, len(m.state.Artifacts))
	for _, a := range m.state.Artifacts {
		line := theme.Title.Render(styles.IconArtifact + " " + a.Label)
		if m.outputURL != nil {
			line += "  " + theme.Link.Render(m.outputURL(a.Path))
		}
		lines = append(lines, line)
	}
	return widgets.NewBox(fmt.Sprintf("Artifacts (%d)", len(lines))).
		WithContent(strings.Join(lines, "\n")).
		WithSize(m.width, 0).
		WithAccent(theme.Success).
		Render()
}

func (m JobModel) renderBanner(theme styles.Theme) string {
	if !m.ended && !m.state.Outcome.Done() {
		return ""
	}
	var text string
	var color lipgloss.Color
	switch {
	case m.closedByUser:
		text, color = "Stream closed. The job keeps running on the server.", theme.Muted
	case m.state.Outcome == progress.OutcomeComplete:
		text, color = m.completeBanner(), theme.Success
	case m.state.Outcome == progress.OutcomeFailed:
		text, color = "Failed: "+m.state.Error, theme.Error
	case m.state.Outcome == progress.OutcomeDisconnected:
		text, color = "Connection lost. The job may still be running; watch again to reattach.", theme.Warning
	default:
		return ""
	}
	return widgets.NewBox("").
		WithContent(lipgloss.NewStyle().Foreground(color).Render(text)).
		WithSize(m.width, 0).
		WithAccent(color).
		Render()
}

func (m JobModel) completeBanner() string {
	text := progress.DisplayKind(m.kind) + " finished"
	if m.state.Duration != nil {
		text += " in " + progress.FormatDuration(*m.state.Duration)
	}
	return text + "."
}

func (m JobModel) elapsed() time.Duration {
	if m.startedAt.IsZero() {
		return 0
	}
	if m.state.Duration != nil {
		return *m.state.Duration
	}
	end := m.finishedAt
	if end.IsZero() {
		end = m.now()
	}
	return end.Sub(m.startedAt)
}

func (m JobModel) consoleHeight() int {
	used := 6 // header, status, progress, spacing
	if len(m.state.Artifacts) > 0 {
		used += len(m.state.Artifacts) + 3
	}
	if m.ended || m.state.Outcome.Done() {
		used += 3
	}
	return maxInt(3, m.height-used-3)
}

func (m JobModel) resizeViewport() JobModel {
	m.vp.Width = maxInt(0, m.width-4)
	m.vp.Height = m.consoleHeight()
	return m.refreshConsole(false)
}

func (m JobModel) refreshConsole(gotoBottom bool) JobModel {
	theme := styles.DefaultTheme()
	style := theme.Console
	content := m.state.Console
	if m.state.Outcome == progress.OutcomeComplete {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += progress.CompleteMarker
	}
	if content == "" {
		style = theme.TitleMuted
		content = "(no output yet)"
	}
	if m.vp.Width > 0 {
		style = style.Width(m.vp.Width)
	}
	content = style.Render(content)
	m.vp.Height = m.consoleHeight()
	m.vp.SetContent(content)
	if gotoBottom {
		m.vp.GotoBottom()
	}
	return m
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

var _ tea.Model = JobModel{}
