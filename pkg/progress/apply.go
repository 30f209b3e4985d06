package progress

import (
	"strings"
	"time"

	"github.com/go-go-golems/studioctl/pkg/protocol"
)

// Apply folds one message into s. The returned bool is false when the
// message did not change anything, including every message that arrives
// after the outcome left running.
func Apply(s State, msg protocol.Message) (State, bool) {
	if s.Outcome.Done() {
		return s, false
	}
	s = s.Clone()

	switch msg.Type {
	case protocol.TypeOutput:
		if msg.Content == "" {
			return s, false
		}
		s.Console += msg.Content

	case protocol.TypeTotalUnits:
		s.Total = msg.Count
		s.Percent = Percent(s.Current, s.Total)

	case protocol.TypeUnitProgress:
		s.Current = msg.Current
		s.Percent = Percent(s.Current, s.Total)

	case protocol.TypeStatusText:
		text := msg.Message
		if text == "" {
			text = msg.Content
		}
		s.Status = text

	case protocol.TypeExternalReady:
		s.Busy = false
		if msg.Content != "" {
			s.Status = msg.Content
		}

	case protocol.TypeArtifactReady:
		if msg.Path == "" {
			return s, false
		}
		s.Artifacts = append(s.Artifacts, NewArtifact(msg.Path))

	case protocol.TypeComplete:
		if msg.TotalDuration != nil && *msg.TotalDuration >= 0 {
			d := time.Duration(*msg.TotalDuration * float64(time.Second))
			s.Duration = &d
		}
		s.Busy = false
		if msg.Failed() {
			text := msg.Message
			if text == "" {
				text = msg.Content
			}
			s.Console = appendErrorLine(s.Console, text)
			s.Error = text
			s.Status = failedStatus(s.Kind)
			s.Outcome = OutcomeFailed
			break
		}
		if msg.OutputFiles != nil {
			s.Artifacts = make([]Artifact, 0, len(msg.OutputFiles))
			for _, p := range msg.OutputFiles {
				if p == "" {
					continue
				}
				s.Artifacts = append(s.Artifacts, NewArtifact(p))
			}
		}
		s.Status = completeStatus(s.Kind, len(s.Artifacts))
		s.Outcome = OutcomeComplete

	case protocol.TypeError:
		s.Console = appendErrorLine(s.Console, msg.Content)
		s.Error = msg.Content
		s.Status = failedStatus(s.Kind)
		s.Busy = false
		s.Outcome = OutcomeFailed

	default:
		return s, false
	}
	return s, true
}

// Disconnect records a transport loss. It only applies while running.
func Disconnect(s State, reason string) (State, bool) {
	if s.Outcome.Done() {
		return s, false
	}
	s = s.Clone()
	s.Outcome = OutcomeDisconnected
	s.Busy = false
	s.Error = reason
	s.Status = "Connection to the output stream was lost; the job may still be running."
	return s, true
}

func appendErrorLine(console, text string) string {
	if console != "" && !strings.HasSuffix(console, "\n") {
		console += "\n"
	}
	return console + "Error: " + text + "\n"
}

func completeStatus(kind string, artifacts int) string {
	if artifacts == 0 {
		return DisplayKind(kind) + " finished. No output files found."
	}
	return DisplayKind(kind) + " finished!"
}

func failedStatus(kind string) string {
	return DisplayKind(kind) + " failed!"
}

// CompleteMarker closes the console of a job that completed. Renderers print
// it after the console; it is never part of State.Console.
const CompleteMarker = "--- Process Complete ---"

// DisplayKind turns "script_builder" into "Script Builder".
func DisplayKind(kind string) string {
	parts := strings.FieldsFunc(kind, func(r rune) bool { return r == '_' || r == '-' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	if len(parts) == 0 {
		return "Job"
	}
	return strings.Join(parts, " ")
}
