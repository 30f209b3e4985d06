package progress

import (
	"time"
)

type Outcome string

const (
	OutcomeRunning      Outcome = "running"
	OutcomeComplete     Outcome = "complete"
	OutcomeFailed       Outcome = "failed"
	OutcomeDisconnected Outcome = "disconnected"
)

// Terminal reports whether the server declared the job finished.
func (o Outcome) Terminal() bool {
	return o == OutcomeComplete || o == OutcomeFailed
}

// Done reports whether no further messages will be applied.
func (o Outcome) Done() bool {
	return o != OutcomeRunning
}

type Artifact struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// State is the client's view of one job. It is only changed through Apply
// and Disconnect.
type State struct {
	Kind    string  `json:"kind"`
	Outcome Outcome `json:"outcome"`

	Total   int `json:"total"`
	Current int `json:"current"`
	Percent int `json:"percent"`

	Status    string     `json:"status"`
	Console   string     `json:"console"`
	Artifacts []Artifact `json:"artifacts,omitempty"`

	// Busy is cleared once an external window takes over or the job ends.
	Busy bool `json:"busy"`

	Duration *time.Duration `json:"duration,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func New(kind string) State {
	return State{
		Kind:    kind,
		Outcome: OutcomeRunning,
		Status:  "Initializing...",
		Busy:    true,
	}
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	out := s
	if s.Artifacts != nil {
		out.Artifacts = append([]Artifact(nil), s.Artifacts...)
	}
	if s.Duration != nil {
		d := *s.Duration
		out.Duration = &d
	}
	return out
}

// HasTotal reports whether the job reported a unit count worth rendering as
// a ratio.
func (s State) HasTotal() bool {
	return s.Total > 0
}

// Percent computes floor(current/total*100) clamped to [0,100]. A
// non-positive total yields 0.
func Percent(current, total int) int {
	if total <= 0 || current <= 0 {
		return 0
	}
	p := int64(current) * 100 / int64(total)
	if p > 100 {
		return 100
	}
	return int(p)
}
