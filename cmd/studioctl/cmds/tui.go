package cmds

import (
	"context"
	stderrors "errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/studioctl/pkg/bus"
	"github.com/go-go-golems/studioctl/pkg/client"
	"github.com/go-go-golems/studioctl/pkg/progress"
	"github.com/go-go-golems/studioctl/pkg/stream"
	"github.com/go-go-golems/studioctl/pkg/tui"
	"github.com/go-go-golems/studioctl/pkg/tui/models"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// runTUI follows kind in a bubbletea program. The stream manager publishes
// on the bus; the program receives updates through the UI forwarder and
// sends close requests back on the actions topic.
func runTUI(ctx context.Context, cmd *cobra.Command, c *client.Client, kind string, altScreen bool) (progress.State, bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b, err := bus.NewInMemoryBus()
	if err != nil {
		return progress.State{}, false, err
	}

	m := stream.NewManager(stream.Options{Dialer: c, Publisher: b.Publisher})
	defer m.Shutdown()
	stream.RegisterBusActions(b, m)

	model := models.NewJobModel(models.JobOptions{
		Kind:      kind,
		Publisher: b.Publisher,
		OutputURL: c.OutputURL,
	})
	programOptions := []tea.ProgramOption{
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithContext(ctx),
	}
	if altScreen {
		programOptions = append(programOptions, tea.WithAltScreen())
	}
	program := tea.NewProgram(model, programOptions...)
	tui.RegisterUIForwarder(b, program)

	var h *stream.Handle
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := b.Run(egCtx)
		if stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		select {
		case <-b.Running():
		case <-egCtx.Done():
			return nil
		}
		var err error
		h, err = m.Open(egCtx, kind)
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		_, err := program.Run()
		cancel()
		if stderrors.Is(err, tea.ErrProgramKilled) || stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := eg.Wait(); err != nil {
		return progress.State{}, false, errors.Wrap(err, "tui")
	}
	if h == nil {
		return progress.State{}, true, nil
	}
	<-h.Done()
	return h.Snapshot(), h.ClosedByUser(), nil
}
