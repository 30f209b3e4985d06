package protocol

import (
	"encoding/json"
	"strings"
)

type MessageType string

const (
	TypeHeartbeat     MessageType = "heartbeat"
	TypeOutput        MessageType = "output"
	TypeTotalUnits    MessageType = "total_units"
	TypeUnitProgress  MessageType = "unit_progress"
	TypeStatusText    MessageType = "status_text"
	TypeExternalReady MessageType = "external_ready"
	TypeArtifactReady MessageType = "artifact_ready"
	TypeComplete      MessageType = "complete"
	TypeError         MessageType = "error"

	// TypeUnknown marks a frame whose tag this client does not understand.
	TypeUnknown MessageType = "unknown"
)

// Tags emitted by older control panel builds for the podcast pipeline.
var legacyTypes = map[string]MessageType{
	"total_segments":    TypeTotalUnits,
	"segment_progress":  TypeUnitProgress,
	"processing_update": TypeStatusText,
	"gui_active":        TypeExternalReady,
	"video_ready":       TypeArtifactReady,
}

const (
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusError      = "error"
	StatusInfo       = "info"
)

// Message is one decoded stream frame. Only the fields relevant to Type are set.
type Message struct {
	Type MessageType `json:"type"`
	// RawType is the tag as it appeared on the wire, before alias resolution.
	RawType string `json:"raw_type,omitempty"`

	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count,omitempty"`
	Current int    `json:"current,omitempty"`
	Path    string `json:"path,omitempty"`

	// OutputFiles is nil when the frame carried no list, and non-nil (possibly
	// empty) when it did.
	OutputFiles   []string `json:"output_files,omitempty"`
	TotalDuration *float64 `json:"total_duration,omitempty"`
	Status        string   `json:"status,omitempty"`
}

func (m Message) IsTerminal() bool {
	return m.Type == TypeComplete || m.Type == TypeError
}

// Failed reports whether a terminal frame describes a failed job. The server
// reports non-zero exits as a complete frame with status "error".
func (m Message) Failed() bool {
	switch m.Type {
	case TypeError:
		return true
	case TypeComplete:
		return strings.EqualFold(m.Status, StatusError)
	default:
		return false
	}
}

// Ack is the reply to a job submission or stop request.
type Ack struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

// ErrorsText flattens the optional errors field, which the server sends
// either as a string or as a list of strings.
func (a Ack) ErrorsText() string {
	if len(a.Errors) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(a.Errors, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(a.Errors, &list); err == nil {
		return strings.Join(list, "\n")
	}
	return string(a.Errors)
}

type StopRequest struct {
	Type string `json:"type"`
}
