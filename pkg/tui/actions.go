package tui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/studioctl/pkg/bus"
	"github.com/go-go-golems/studioctl/pkg/stream"
	"github.com/pkg/errors"
)

func PublishCloseRequest(pub message.Publisher, kind string) error {
	if kind == "" {
		return errors.New("missing job kind")
	}
	return bus.Publish(pub, bus.TopicActions, bus.TypeStreamCloseRequest, stream.CloseRequest{Kind: kind})
}

// CloseStreamCmd publishes a close request and reports the result as a
// CloseResultMsg.
func CloseStreamCmd(pub message.Publisher, kind string) tea.Cmd {
	return func() tea.Msg {
		return CloseResultMsg{Kind: kind, Err: PublishCloseRequest(pub, kind)}
	}
}
