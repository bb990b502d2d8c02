// Package events decodes the session event stream and routes each event
// to the consumer callback registered for its kind.
//
// Every frame on the stream is an envelope
//
//	{"event": "content_block:delta", "data": {"session_id": "...", ...}}
//
// Decode turns the envelope into one variant of the closed Event union;
// Dispatch decodes and delivers in one synchronous step, so the order
// the transport produced frames in is the order callbacks observe.
package events

import "encoding/json"

// Kind identifies an event variant.
type Kind int

const (
	KindUnknown Kind = iota
	KindSessionStart
	KindPromptSubmit
	KindContentDelta
	KindThinkingStart
	KindThinkingDelta
	KindThinkingEnd
	KindToolPre
	KindToolPost
	KindApprovalRequired
	KindApprovalGranted
	KindApprovalDenied
	KindPromptComplete
	KindStatusUpdate
	KindDisplayText
	KindWarning
	KindSessionEnd
	KindError
)

var kindNames = map[Kind]string{
	KindSessionStart:     "session:start",
	KindPromptSubmit:     "prompt:submit",
	KindContentDelta:     "content_block:delta",
	KindThinkingStart:    "thinking:start",
	KindThinkingDelta:    "thinking:delta",
	KindThinkingEnd:      "thinking:end",
	KindToolPre:          "tool:pre",
	KindToolPost:         "tool:post",
	KindApprovalRequired: "approval:required",
	KindApprovalGranted:  "approval:granted",
	KindApprovalDenied:   "approval:denied",
	KindPromptComplete:   "prompt:complete",
	KindStatusUpdate:     "status:update",
	KindDisplayText:      "display:text",
	KindWarning:          "warning",
	KindSessionEnd:       "session:end",
	KindError:            "error",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the canonical wire name, or "unknown".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a wire name to its Kind. Unrecognized names map to
// KindUnknown.
func ParseKind(name string) Kind {
	return kindsByName[name]
}

// Event is the closed union of session events. Only types in this
// package implement it.
type Event interface {
	Kind() Kind
	Session() string
	event()
}

// Meta carries the fields every event has.
type Meta struct {
	SessionID string `json:"session_id"`
}

func (m Meta) Session() string { return m.SessionID }
func (Meta) event()             {}

// TokenUsage is cumulative usage reported by the server.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type SessionStart struct {
	Meta
	Profile   string `json:"profile"`
	Timestamp string `json:"timestamp"`
}

type PromptSubmit struct {
	Meta
	Prompt        string         `json:"prompt"`
	ContextUpdate map[string]any `json:"context_update,omitempty"`
}

// ContentDelta is a chunk of assistant text for one content block.
type ContentDelta struct {
	Meta
	BlockIndex int    `json:"block_index"`
	Delta      string `json:"delta"`
}

type ThinkingStart struct {
	Meta
	BlockIndex int `json:"block_index"`
}

type ThinkingDelta struct {
	Meta
	Delta string `json:"delta"`
}

type ThinkingEnd struct {
	Meta
	BlockIndex int `json:"block_index"`
}

// ToolPre is emitted before the remote agent runs a tool.
type ToolPre struct {
	Meta
	ToolName  string         `json:"tool_name"`
	Operation string         `json:"operation"`
	Input     map[string]any `json:"input,omitempty"`
}

// ToolPost is emitted after a tool finished.
type ToolPost struct {
	Meta
	ToolName   string          `json:"tool_name"`
	Operation  string          `json:"operation"`
	Result     json.RawMessage `json:"result,omitempty"`
	DurationMS *float64        `json:"duration_ms,omitempty"`
}

// ApprovalRequired asks the client to allow or deny a gated operation.
// Timeout is in seconds; Default is the decision the server applies
// when nobody answers.
type ApprovalRequired struct {
	Meta
	ApprovalID string         `json:"approval_id"`
	Prompt     string         `json:"prompt"`
	Options    []string       `json:"options"`
	Timeout    float64        `json:"timeout"`
	Default    string         `json:"default"`
	Context    map[string]any `json:"context,omitempty"`
}

type ApprovalGranted struct {
	Meta
	ApprovalID string `json:"approval_id"`
	Decision   string `json:"decision"`
}

type ApprovalDenied struct {
	Meta
	ApprovalID string `json:"approval_id"`
	Decision   string `json:"decision"`
	Reason     string `json:"reason,omitempty"`
}

type PromptComplete struct {
	Meta
	Response   string      `json:"response"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
}

type StatusUpdate struct {
	Meta
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Progress *int   `json:"progress,omitempty"`
}

type DisplayText struct {
	Meta
	Text string `json:"text"`
	Type string `json:"type"`
}

type Warning struct {
	Meta
	Message string `json:"message"`
}

type SessionEnd struct {
	Meta
	Reason     string      `json:"reason"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
}

// Error is a server-reported failure inside the session. It is an event,
// not a Go error.
type Error struct {
	Meta
	Message string `json:"error"`
}

// Unknown is an event whose name this client does not recognize. It is
// never delivered to a handler.
type Unknown struct {
	Meta
	Name string
	Data json.RawMessage
}

func (SessionStart) Kind() Kind     { return KindSessionStart }
func (PromptSubmit) Kind() Kind     { return KindPromptSubmit }
func (ContentDelta) Kind() Kind     { return KindContentDelta }
func (ThinkingStart) Kind() Kind    { return KindThinkingStart }
func (ThinkingDelta) Kind() Kind    { return KindThinkingDelta }
func (ThinkingEnd) Kind() Kind      { return KindThinkingEnd }
func (ToolPre) Kind() Kind          { return KindToolPre }
func (ToolPost) Kind() Kind         { return KindToolPost }
func (ApprovalRequired) Kind() Kind { return KindApprovalRequired }
func (ApprovalGranted) Kind() Kind  { return KindApprovalGranted }
func (ApprovalDenied) Kind() Kind   { return KindApprovalDenied }
func (PromptComplete) Kind() Kind   { return KindPromptComplete }
func (StatusUpdate) Kind() Kind     { return KindStatusUpdate }
func (DisplayText) Kind() Kind      { return KindDisplayText }
func (Warning) Kind() Kind          { return KindWarning }
func (SessionEnd) Kind() Kind       { return KindSessionEnd }
func (Error) Kind() Kind            { return KindError }
func (Unknown) Kind() Kind          { return KindUnknown }
