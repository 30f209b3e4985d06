package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-go-golems/studioctl/pkg/client"
	"github.com/go-go-golems/studioctl/pkg/progress"
	"github.com/go-go-golems/studioctl/pkg/stream"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type watchMode int

const (
	watchText watchMode = iota
	watchJSON
	watchTUI
)

type watchFlags struct {
	JSON      bool
	TUI       bool
	AltScreen bool
}

// mode picks the renderer. out is checked for a terminal when --tui is set.
func (w watchFlags) mode(out io.Writer) (watchMode, error) {
	switch {
	case w.JSON && w.TUI:
		return 0, errors.New("use only one of --json or --tui")
	case w.JSON:
		return watchJSON, nil
	case w.TUI:
		if !isTerminal(out) {
			return 0, errors.New("--tui needs a terminal on stdout; use --json or plain output instead")
		}
		return watchTUI, nil
	default:
		return watchText, nil
	}
}

func addWatchFlags(cmd *cobra.Command, w *watchFlags) {
	cmd.Flags().BoolVar(&w.JSON, "json", false, "Print every state update as a JSON line")
	cmd.Flags().BoolVar(&w.TUI, "tui", false, "Follow the job in an interactive terminal UI")
	cmd.Flags().BoolVar(&w.AltScreen, "alt-screen", true, "Use the terminal alternate screen buffer with --tui")
}

func newWatchCmd() *cobra.Command {
	var kind string
	var wf watchFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the progress stream of a job kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireKind(kind); err != nil {
				return err
			}
			mode, err := wf.mode(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			return watchJob(cmd, c, kind, mode, wf.AltScreen)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Job kind to follow (required)")
	addWatchFlags(cmd, &wf)
	return cmd
}

func watchJob(cmd *cobra.Command, c *client.Client, kind string, mode watchMode, altScreen bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var (
		st           progress.State
		closedByUser bool
		err          error
	)
	switch mode {
	case watchTUI:
		st, closedByUser, err = runTUI(ctx, cmd, c, kind, altScreen)
	case watchJSON:
		st, closedByUser, err = followStream(ctx, c, kind, newJSONRenderer(cmd.OutOrStdout()).observe)
	default:
		r := newTextRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr())
		st, closedByUser, err = followStream(ctx, c, kind, r.observe)
		if err == nil {
			r.finish(st, closedByUser, c.OutputURL)
		}
	}
	if err != nil {
		return err
	}
	if mode == watchJSON {
		_ = json.NewEncoder(cmd.OutOrStdout()).Encode(stream.StreamEnded{
			Kind:         kind,
			Outcome:      st.Outcome,
			ClosedByUser: closedByUser,
			Error:        st.Error,
			State:        st,
		})
	}
	return exitError(st, closedByUser)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func followStream(ctx context.Context, c *client.Client, kind string, observers ...stream.Observer) (progress.State, bool, error) {
	m := stream.NewManager(stream.Options{Dialer: c})
	defer m.Shutdown()

	h, err := m.Open(ctx, kind, observers...)
	if err != nil {
		return progress.State{}, false, err
	}
	<-h.Done()
	return h.Snapshot(), h.ClosedByUser(), nil
}

// exitError maps the final outcome to the command result: only a failed job
// is an error.
func exitError(st progress.State, closedByUser bool) error {
	if !closedByUser && st.Outcome == progress.OutcomeFailed {
		msg := st.Error
		if msg == "" {
			msg = st.Status
		}
		return errors.Errorf("%s failed: %s", progress.DisplayKind(st.Kind), msg)
	}
	return nil
}

type jsonRenderer struct {
	enc *json.Encoder
}

func newJSONRenderer(w io.Writer) *jsonRenderer {
	return &jsonRenderer{enc: json.NewEncoder(w)}
}

func (r *jsonRenderer) observe(u stream.Update) {
	_ = r.enc.Encode(u)
}

// textRenderer writes console output to out as it grows and status or
// progress changes to status.
type textRenderer struct {
	out     io.Writer
	status  io.Writer
	printed int

	lastStatus  string
	lastPercent int
	lastBusy    bool
}

func newTextRenderer(out, status io.Writer) *textRenderer {
	return &textRenderer{out: out, status: status, lastPercent: -1, lastBusy: true}
}

func (r *textRenderer) observe(u stream.Update) {
	s := u.State
	if len(s.Console) < r.printed {
		r.printed = 0
	}
	if len(s.Console) > r.printed {
		_, _ = io.WriteString(r.out, s.Console[r.printed:])
		r.printed = len(s.Console)
	}
	if s.HasTotal() && s.Percent != r.lastPercent {
		r.lastPercent = s.Percent
		_, _ = fmt.Fprintf(r.status, "[%3d%%] %d/%d\n", s.Percent, s.Current, s.Total)
	}
	if s.Status != r.lastStatus && s.Outcome == progress.OutcomeRunning {
		r.lastStatus = s.Status
		_, _ = fmt.Fprintf(r.status, "» %s\n", s.Status)
	}
	if r.lastBusy && !s.Busy && s.Outcome == progress.OutcomeRunning {
		_, _ = fmt.Fprintln(r.status, "» external window opened; output continues there")
	}
	r.lastBusy = s.Busy
}

func (r *textRenderer) finish(s progress.State, closedByUser bool, outputURL func(string) string) {
	if r.printed > 0 && !strings.HasSuffix(s.Console, "\n") {
		_, _ = fmt.Fprintln(r.out)
	}
	switch {
	case closedByUser:
		_, _ = fmt.Fprintf(r.status, "Stream closed. %s keeps running on the server.\n", progress.DisplayKind(s.Kind))
	case s.Outcome == progress.OutcomeDisconnected:
		_, _ = fmt.Fprintf(r.status, "Connection lost. %s may still be running; run watch again to reattach.\n", progress.DisplayKind(s.Kind))
	case s.Outcome == progress.OutcomeComplete:
		_, _ = fmt.Fprintln(r.out, progress.CompleteMarker)
		line := s.Status
		if s.Duration != nil {
			line += " (" + progress.FormatDuration(*s.Duration) + ")"
		}
		_, _ = fmt.Fprintln(r.status, line)
	case s.Outcome == progress.OutcomeFailed:
		_, _ = fmt.Fprintln(r.status, s.Status)
	}
	for _, a := range s.Artifacts {
		_, _ = fmt.Fprintf(r.out, "%s  %s\n", a.Label, outputURL(a.Path))
	}
}
