package stream

import (
	"time"

	"github.com/go-go-golems/studioctl/pkg/progress"
	"github.com/go-go-golems/studioctl/pkg/protocol"
)

// Update is delivered to observers after every message that changed the
// state, and once more if the transport is lost while running. Gen identifies
// the handle and Seq increases by one per update of that handle; bus
// consumers use both to drop envelopes delivered out of order.
type Update struct {
	Kind    string           `json:"kind"`
	Gen     uint64           `json:"gen"`
	Seq     uint64           `json:"seq"`
	Message protocol.Message `json:"message"`
	State   progress.State   `json:"state"`
	At      time.Time        `json:"at"`
}

// Disconnected reports whether this update records a transport loss.
func (u Update) Disconnected() bool {
	return u.State.Outcome == progress.OutcomeDisconnected
}

type Observer func(Update)

type StreamStarted struct {
	Kind string    `json:"kind"`
	Gen  uint64    `json:"gen"`
	At   time.Time `json:"at"`
}

type StreamEnded struct {
	Kind         string           `json:"kind"`
	Gen          uint64           `json:"gen"`
	At           time.Time        `json:"at"`
	Outcome      progress.Outcome `json:"outcome"`
	ClosedByUser bool             `json:"closed_by_user"`
	Error        string           `json:"error,omitempty"`
	State        progress.State   `json:"state"`
}

type CloseRequest struct {
	Kind string `json:"kind"`
}
