package chat

import (
	"context"
	"errors"
	"strings"

	"ampsession/internal/approval"
	"ampsession/internal/session"
)

// loop drives one chat: prompts and approval answers come from lines,
// everything the session reports arrives on the other channels.
type loop struct {
	ctrl        *session.Controller
	out         *printer
	interactive bool

	lines     <-chan string
	approvals <-chan approval.Request
	turns     <-chan struct{}
	fatal     <-chan error
}

func (l *loop) run(ctx context.Context) error {
	var (
		pending *approval.Request
		busy    bool
		eof     bool
	)
	lines := l.lines

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-l.fatal:
			l.out.line("connection lost: %v", err)
			return err

		case req := <-l.approvals:
			if l.interactive {
				pending = &req
			}

		case <-l.turns:
			busy = false
			if eof {
				return nil
			}

		case line, ok := <-lines:
			if !ok {
				lines = nil
				eof = true
				if !busy {
					return nil
				}
				continue
			}
			line = strings.TrimSpace(line)

			// An approval that arrived with the line takes the answer.
			select {
			case req := <-l.approvals:
				if l.interactive {
					pending = &req
				}
			default:
			}
			// It may have been settled without us: timeout, server or
			// a newer request.
			if pending != nil {
				if cur, ok := l.ctrl.PendingApproval(); !ok || cur.ApprovalID != pending.ApprovalID {
					pending = nil
				}
			}

			switch {
			case pending != nil:
				decision, ok := pickOption(*pending, line)
				if !ok {
					l.out.line("pick one of %s", strings.Join(pending.Options, ", "))
					continue
				}
				err := l.ctrl.Resolve(ctx, pending.ApprovalID, decision)
				pending = nil
				if errors.Is(err, approval.ErrNoPendingApproval) {
					l.out.line("approval already resolved")
				}
			case line == "":
			case line == "/quit":
				return nil
			case line == "/status":
				st, err := l.ctrl.Status(ctx)
				if err != nil {
					l.out.line("status: %v", err)
					continue
				}
				l.out.line("session %s: %s, %d messages", st.SessionID, st.Status, st.MessageCount)
			case busy:
				l.out.line("still working on the previous prompt")
			default:
				if err := l.ctrl.SendPrompt(ctx, line, nil); err != nil {
					l.out.line("prompt failed: %v", err)
					continue
				}
				busy = true
			}
		}
	}
}
