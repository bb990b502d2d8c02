package gateway

import (
	"encoding/json"
	"time"

	"ampsession/internal/api"
	"ampsession/internal/events"
)

// ApprovalResponder gates every prompt behind a simulated tool call
// that needs approval. Unanswered requests fall back to the default
// after timeout, as the real server does, and are reported as denied.
func (srv *Server) ApprovalResponder(timeout time.Duration) Responder {
	return func(s *Session, prompt string) {
		meta := events.Meta{SessionID: s.ID}
		input := map[string]any{"command": prompt}
		_ = s.Emit(events.ToolPre{Meta: meta, ToolName: "bash", Operation: "execute", Input: input})

		approvalID, asked, err := srv.RequestApproval(s.ID, "Run `"+prompt+"`?",
			[]string{"AlwaysAllow", "Allow", "Deny"}, timeout, "Deny")
		if err != nil {
			return
		}

		decision := "Allow"
		if asked {
			select {
			case decision = <-s.decided:
			case <-time.After(timeout):
				decision = s.expire(approvalID)
			}
		}

		if decision == "Deny" {
			_ = s.Complete("Denied: " + prompt)
			return
		}
		result, _ := json.Marshal("ran " + prompt)
		ms := 1.0
		_ = s.Emit(events.ToolPost{Meta: meta, ToolName: "bash", Operation: "execute", Result: result, DurationMS: &ms})
		EchoResponder(s, prompt)
	}
}

// expire applies the default decision of a pending approval nobody
// answered.
func (s *Session) expire(approvalID string) string {
	s.mu.Lock()
	p := s.pending
	if p == nil || p.ApprovalID != approvalID {
		s.mu.Unlock()
		select {
		case d := <-s.decided:
			return d
		default:
			return "Deny"
		}
	}
	s.pending = nil
	s.status = api.StatusProcessing
	s.mu.Unlock()

	_ = s.Emit(events.ApprovalDenied{
		Meta:       events.Meta{SessionID: s.ID},
		ApprovalID: approvalID,
		Decision:   p.Default,
		Reason:     "timeout",
	})
	return p.Default
}
