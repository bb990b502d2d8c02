package events

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeError reports a frame that could not be turned into an Event.
type DecodeError struct {
	Cause   error
	Message string
	Raw     string
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type decodeFunc func(data json.RawMessage) (Event, error)

var decoders = map[Kind]decodeFunc{
	KindSessionStart:     decodeAs[SessionStart],
	KindPromptSubmit:     decodeAs[PromptSubmit],
	KindContentDelta:     decodeAs[ContentDelta],
	KindThinkingStart:    decodeAs[ThinkingStart],
	KindThinkingDelta:    decodeAs[ThinkingDelta],
	KindThinkingEnd:      decodeAs[ThinkingEnd],
	KindToolPre:          decodeAs[ToolPre],
	KindToolPost:         decodeAs[ToolPost],
	KindApprovalRequired: decodeAs[ApprovalRequired],
	KindApprovalGranted:  decodeAs[ApprovalGranted],
	KindApprovalDenied:   decodeAs[ApprovalDenied],
	KindPromptComplete:   decodeAs[PromptComplete],
	KindStatusUpdate:     decodeAs[StatusUpdate],
	KindDisplayText:      decodeAs[DisplayText],
	KindWarning:          decodeAs[Warning],
	KindSessionEnd:       decodeAs[SessionEnd],
	KindError:            decodeAs[Error],
}

func decodeAs[T Event](data json.RawMessage) (Event, error) {
	var v T
	if err := unmarshalData(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// unmarshalData treats a missing or null data object as empty.
func unmarshalData(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, v)
}

// Decode parses one wire envelope. Unrecognized event names decode to
// Unknown without error; a malformed envelope or payload returns a
// *DecodeError.
func Decode(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Message: "invalid envelope", Cause: err, Raw: truncate(raw)}
	}
	if env.Event == "" {
		return nil, &DecodeError{Message: "envelope has no event name", Raw: truncate(raw)}
	}

	kind := ParseKind(env.Event)
	if kind == KindUnknown {
		var meta Meta
		if err := unmarshalData(env.Data, &meta); err != nil {
			return nil, &DecodeError{Message: "invalid data for " + env.Event, Cause: err, Raw: truncate(raw)}
		}
		return Unknown{Meta: meta, Name: env.Event, Data: env.Data}, nil
	}

	ev, err := decoders[kind](env.Data)
	if err != nil {
		return nil, &DecodeError{Message: "invalid data for " + env.Event, Cause: err, Raw: truncate(raw)}
	}
	return ev, nil
}

// Encode builds the wire envelope for ev. It is the inverse of Decode
// for every known kind.
func Encode(ev Event) ([]byte, error) {
	if u, ok := ev.(Unknown); ok {
		return json.Marshal(envelope{Event: u.Name, Data: u.Data})
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Kind(), err)
	}
	return json.Marshal(envelope{Event: ev.Kind().String(), Data: data})
}

func truncate(raw []byte) string {
	const limit = 256
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}
