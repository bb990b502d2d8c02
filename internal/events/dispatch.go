package events

import "log/slog"

// Handlers holds one optional callback per event kind. Nil callbacks are
// skipped. Logger receives dropped and ignored frames; nil means
// slog.Default().
type Handlers struct {
	Logger *slog.Logger

	OnSessionStart     func(SessionStart)
	OnPromptSubmit     func(PromptSubmit)
	OnContentDelta     func(ContentDelta)
	OnThinkingStart    func(ThinkingStart)
	OnThinkingDelta    func(ThinkingDelta)
	OnThinkingEnd      func(ThinkingEnd)
	OnToolPre          func(ToolPre)
	OnToolPost         func(ToolPost)
	OnApprovalRequired func(ApprovalRequired)
	OnApprovalGranted  func(ApprovalGranted)
	OnApprovalDenied   func(ApprovalDenied)
	OnPromptComplete   func(PromptComplete)
	OnStatusUpdate     func(StatusUpdate)
	OnDisplayText      func(DisplayText)
	OnWarning          func(Warning)
	OnSessionEnd       func(SessionEnd)
	OnError            func(Error)
}

// Dispatch decodes raw, delivers the event to h and returns it. Malformed
// frames are logged and dropped; they never reach the caller and
// Dispatch returns nil.
func Dispatch(raw []byte, h *Handlers) Event {
	ev, err := Decode(raw)
	if err != nil {
		h.logger().Warn("dropping malformed event", "error", err)
		return nil
	}
	h.Deliver(ev)
	return ev
}

func (h *Handlers) logger() *slog.Logger {
	if h == nil || h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Deliver invokes the callback registered for ev's kind, if any.
func (h *Handlers) Deliver(ev Event) {
	if h == nil {
		return
	}
	switch ev := ev.(type) {
	case SessionStart:
		call(h.OnSessionStart, ev)
	case PromptSubmit:
		call(h.OnPromptSubmit, ev)
	case ContentDelta:
		call(h.OnContentDelta, ev)
	case ThinkingStart:
		call(h.OnThinkingStart, ev)
	case ThinkingDelta:
		call(h.OnThinkingDelta, ev)
	case ThinkingEnd:
		call(h.OnThinkingEnd, ev)
	case ToolPre:
		call(h.OnToolPre, ev)
	case ToolPost:
		call(h.OnToolPost, ev)
	case ApprovalRequired:
		call(h.OnApprovalRequired, ev)
	case ApprovalGranted:
		call(h.OnApprovalGranted, ev)
	case ApprovalDenied:
		call(h.OnApprovalDenied, ev)
	case PromptComplete:
		call(h.OnPromptComplete, ev)
	case StatusUpdate:
		call(h.OnStatusUpdate, ev)
	case DisplayText:
		call(h.OnDisplayText, ev)
	case Warning:
		call(h.OnWarning, ev)
	case SessionEnd:
		call(h.OnSessionEnd, ev)
	case Error:
		call(h.OnError, ev)
	case Unknown:
		h.logger().Debug("ignoring unknown event", "event", ev.Name, "session_id", ev.SessionID)
	}
}

func call[T Event](fn func(T), ev T) {
	if fn != nil {
		fn(ev)
	}
}
