package protocol

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/pkg/errors"
)

var kindPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

func ValidateKind(kind string) error {
	if kind == "" {
		return errors.Errorf("%s: empty job kind", ErrProtocolInvalidKind)
	}
	if !kindPattern.MatchString(kind) {
		return errors.Errorf("%s: invalid job kind %q", ErrProtocolInvalidKind, kind)
	}
	return nil
}

// CanonicalType resolves a wire tag, including legacy aliases, to a MessageType.
// Unrecognized tags map to TypeUnknown; an empty tag is a heartbeat.
func CanonicalType(tag string) MessageType {
	if tag == "" {
		return TypeHeartbeat
	}
	switch t := MessageType(tag); t {
	case TypeHeartbeat, TypeOutput, TypeTotalUnits, TypeUnitProgress, TypeStatusText,
		TypeExternalReady, TypeArtifactReady, TypeComplete, TypeError:
		return t
	}
	if t, ok := legacyTypes[tag]; ok {
		return t
	}
	return TypeUnknown
}

// Decode parses one data payload. An empty payload or an object without a
// type is a heartbeat. A payload that is not a JSON object returns an error;
// callers are expected to ignore such frames.
func Decode(data []byte) (Message, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Message{Type: TypeHeartbeat}, nil
	}
	if data[0] != '{' {
		return Message{Type: TypeUnknown}, errors.Errorf("%s: expected JSON object", ErrProtocolInvalidFrame)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{Type: TypeUnknown}, errors.Wrap(err, ErrProtocolInvalidJSON)
	}
	msg.RawType = string(msg.Type)
	msg.Type = CanonicalType(msg.RawType)
	return msg, nil
}
