package tui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/studioctl/pkg/bus"
	"github.com/go-go-golems/studioctl/pkg/stream"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// RegisterUIForwarder turns stream lifecycle envelopes into bubbletea
// messages. Undecodable envelopes are logged and acked.
func RegisterUIForwarder(b *bus.Bus, p Sender) {
	b.AddHandler("studioctl-ui-forward", bus.TopicEvents, func(msg *message.Message) error {
		defer msg.Ack()
		if err := forward(msg, p); err != nil {
			log.Warn().Err(err).Str("uuid", msg.UUID).Msg("dropping ui envelope")
		}
		return nil
	})
}

func forward(msg *message.Message, p Sender) error {
	env, err := bus.Decode(msg)
	if err != nil {
		return err
	}

	switch env.Type {
	case bus.TypeStreamStarted:
		var ev stream.StreamStarted
		if err := env.DecodePayload(&ev); err != nil {
			return errors.Wrap(err, "decode stream started")
		}
		p.Send(StreamStartedMsg{Started: ev})
	case bus.TypeStreamUpdate:
		var u stream.Update
		if err := env.DecodePayload(&u); err != nil {
			return errors.Wrap(err, "decode stream update")
		}
		p.Send(StreamUpdateMsg{Update: u})
	case bus.TypeStreamEnded:
		var ev stream.StreamEnded
		if err := env.DecodePayload(&ev); err != nil {
			return errors.Wrap(err, "decode stream ended")
		}
		p.Send(StreamEndedMsg{End: ev})
	}
	return nil
}
