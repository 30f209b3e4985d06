package tui

import "github.com/go-go-golems/studioctl/pkg/stream"

type StreamStartedMsg struct {
	Started stream.StreamStarted
}

type StreamUpdateMsg struct {
	Update stream.Update
}

type StreamEndedMsg struct {
	End stream.StreamEnded
}

// CloseResultMsg reports the outcome of publishing a close request.
type CloseResultMsg struct {
	Kind string
	Err  error
}
