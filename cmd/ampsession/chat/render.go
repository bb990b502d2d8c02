package chat

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"ampsession/internal/approval"
	"ampsession/internal/events"

	"github.com/dustin/go-humanize"
)

// printer writes the session transcript. Streamed text and status lines
// interleave, so it remembers whether the cursor is mid-line.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	midLine bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) text(s string) {
	if s == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, s)
	p.midLine = !strings.HasSuffix(s, "\n")
}

func (p *printer) line(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.midLine {
		fmt.Fprintln(p.w)
	}
	fmt.Fprintf(p.w, format+"\n", args...)
	p.midLine = false
}

// handlers renders the event stream. turnDone is called when the
// current prompt has finished, successfully or not.
func (p *printer) handlers(turnDone func()) events.Handlers {
	return events.Handlers{
		OnContentDelta: func(ev events.ContentDelta) { p.text(ev.Delta) },
		OnThinkingStart: func(events.ThinkingStart) {
			p.line("[thinking]")
		},
		OnToolPre: func(ev events.ToolPre) {
			p.line("[tool] %s %s", ev.ToolName, ev.Operation)
		},
		OnToolPost: func(ev events.ToolPost) {
			if ev.DurationMS != nil {
				p.line("[tool] %s done in %.0fms", ev.ToolName, *ev.DurationMS)
				return
			}
			p.line("[tool] %s done", ev.ToolName)
		},
		OnDisplayText: func(ev events.DisplayText) {
			p.line("%s", ev.Text)
		},
		OnWarning: func(ev events.Warning) {
			p.line("warning: %s", ev.Message)
		},
		OnPromptComplete: func(ev events.PromptComplete) {
			if ev.TokenUsage != nil {
				p.line("[%s in / %s out tokens]",
					humanize.Comma(int64(ev.TokenUsage.InputTokens)), humanize.Comma(int64(ev.TokenUsage.OutputTokens)))
			} else {
				p.line("")
			}
			turnDone()
		},
		OnError: func(ev events.Error) {
			p.line("error: %s", ev.Message)
			turnDone()
		},
		OnSessionEnd: func(ev events.SessionEnd) {
			p.line("session ended: %s", ev.Reason)
		},
	}
}

func (p *printer) approvalPending(req approval.Request, interactive bool) {
	p.line("approval needed: %s", req.Prompt)
	for i, opt := range req.Options {
		p.line("  %d) %s", i+1, opt)
	}
	if interactive {
		p.line("choose an option (default %s in %s)", req.Default, req.Timeout)
		return
	}
	p.line("not a terminal; %s will be applied in %s", req.Default, req.Timeout)
}

func (p *printer) approvalResolved(res approval.Resolution) {
	switch res.Source {
	case approval.SourceSuperseded, approval.SourceDiscarded:
		p.line("approval %s %s", res.Request.ApprovalID, res.Source)
	case approval.SourceServer:
		p.line("approval %s settled by server: %s", res.Request.ApprovalID, res.Decision)
	default:
		if res.Err != nil {
			p.line("approval %s: sending %s failed: %v", res.Request.ApprovalID, res.Decision, res.Err)
			return
		}
		p.line("approval %s: %s (%s)", res.Request.ApprovalID, res.Decision, res.Source)
	}
}
