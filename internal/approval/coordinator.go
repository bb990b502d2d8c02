package approval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ampsession/internal/api"
	"ampsession/internal/clock"
	"ampsession/internal/events"
)

const submitTimeout = 30 * time.Second

type Option func(*Coordinator)

func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

func WithClock(cl clock.Clock) Option {
	return func(c *Coordinator) { c.clock = cl }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithDefaults sets the timeout and decision used when a request
// carries none.
func WithDefaults(timeout time.Duration, decision string) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.defaultTimeout = timeout
		}
		if decision != "" {
			c.defaultDecision = decision
		}
	}
}

type pending struct {
	req   Request
	timer *clock.Timer
}

// Coordinator holds at most one pending approval for the session it is
// bound to.
type Coordinator struct {
	submitter Submitter
	notifier  Notifier
	recorder  Recorder
	clock     clock.Clock
	log       *slog.Logger

	defaultTimeout  time.Duration
	defaultDecision string

	mu          sync.Mutex
	sessionID   string
	alwaysAllow bool
	pending     *pending
}

func New(s Submitter, opts ...Option) *Coordinator {
	c := &Coordinator{
		submitter: s,
		notifier:  NotifyFuncs{},
		clock:     clock.Real(),
		log:       slog.Default(),

		defaultTimeout:  DefaultTimeout,
		defaultDecision: DefaultDecision,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin binds the coordinator to sessionID, discarding anything left
// over from a previous session.
func (c *Coordinator) Begin(sessionID string) {
	c.mu.Lock()
	old := c.takeLocked()
	c.sessionID = sessionID
	c.alwaysAllow = false
	c.mu.Unlock()

	if old != nil {
		c.finish(Resolution{Request: old.req, Source: SourceDiscarded})
	}
}

// End discards the pending approval without forwarding anything and
// clears always-allow.
func (c *Coordinator) End() {
	c.mu.Lock()
	old := c.takeLocked()
	c.sessionID = ""
	c.alwaysAllow = false
	c.mu.Unlock()

	if old != nil {
		c.finish(Resolution{Request: old.req, Source: SourceDiscarded})
	}
}

// takeLocked clears the pending slot and stops its timer.
func (c *Coordinator) takeLocked() *pending {
	p := c.pending
	c.pending = nil
	if p != nil {
		p.timer.Stop()
	}
	return p
}

// Request starts waiting on req. With always-allow set it is answered
// with Allow at once. A request that arrives while another is pending
// replaces it; the older one is discarded without a decision.
func (c *Coordinator) Request(ctx context.Context, req Request) {
	if req.Timeout <= 0 {
		req.Timeout = c.defaultTimeout
	}
	if req.Default == "" {
		req.Default = c.defaultDecision
	}

	c.mu.Lock()
	if req.SessionID == "" {
		req.SessionID = c.sessionID
	}
	if c.alwaysAllow {
		c.mu.Unlock()
		c.log.Info("auto-approving", "session_id", req.SessionID, "approval_id", req.ApprovalID)
		_ = c.forward(ctx, req, DecisionAllow, SourceAuto)
		return
	}
	old := c.takeLocked()
	p := &pending{req: req}
	p.timer = c.clock.AfterFunc(req.Timeout, func() { c.expire(p) })
	c.pending = p
	c.mu.Unlock()

	if old != nil {
		c.log.Warn("approval superseded",
			"session_id", req.SessionID, "approval_id", old.req.ApprovalID, "by", req.ApprovalID)
		c.finish(Resolution{Request: old.req, Source: SourceSuperseded})
	}
	c.log.Info("approval pending",
		"session_id", req.SessionID, "approval_id", req.ApprovalID, "timeout", req.Timeout)
	c.notifier.ApprovalPending(req)
}

// HandleRequired adapts an approval:required event. Missing timeout and
// default come from the coordinator's defaults.
func (c *Coordinator) HandleRequired(ev events.ApprovalRequired) {
	req := FromEvent(ev)
	if ev.Timeout <= 0 {
		req.Timeout = c.defaultTimeout
	}
	if ev.Default == "" {
		req.Default = c.defaultDecision
	}
	c.Request(context.Background(), req)
}

// Resolve answers the pending request. A stale or unknown id returns
// ErrNoPendingApproval and forwards nothing.
func (c *Coordinator) Resolve(ctx context.Context, approvalID, decision string) error {
	c.mu.Lock()
	p := c.pending
	if p == nil || p.req.ApprovalID != approvalID {
		c.mu.Unlock()
		c.log.Warn("no pending approval to resolve", "approval_id", approvalID, "decision", decision)
		return ErrNoPendingApproval
	}
	c.takeLocked()
	if decision == DecisionAlwaysAllow {
		c.alwaysAllow = true
	}
	c.mu.Unlock()

	return c.forward(ctx, p.req, decision, SourceUser)
}

// Settle clears the pending request when the server reports it resolved
// on its own. It reports whether a request was cleared.
func (c *Coordinator) Settle(approvalID, decision string) bool {
	c.mu.Lock()
	p := c.pending
	if p == nil || p.req.ApprovalID != approvalID {
		c.mu.Unlock()
		return false
	}
	c.takeLocked()
	c.mu.Unlock()

	c.finish(Resolution{Request: p.req, Decision: decision, Source: SourceServer})
	return true
}

func (c *Coordinator) expire(p *pending) {
	c.mu.Lock()
	if c.pending != p {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.mu.Unlock()

	c.log.Info("approval timed out, applying default",
		"session_id", p.req.SessionID, "approval_id", p.req.ApprovalID, "decision", p.req.Default)
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	_ = c.forward(ctx, p.req, p.req.Default, SourceTimeout)
}

// Pending returns the request currently waiting, if any.
func (c *Coordinator) Pending() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Request{}, false
	}
	return c.pending.req, true
}

func (c *Coordinator) AlwaysAllow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alwaysAllow
}

func (c *Coordinator) forward(ctx context.Context, req Request, decision string, source Source) error {
	_, err := c.submitter.SubmitApproval(ctx, req.SessionID, decision)
	if source == SourceTimeout && api.IsCode(err, api.CodeNoPendingApproval) {
		// The server's own timer applied the same default first.
		c.log.Debug("server already applied approval default",
			"session_id", req.SessionID, "approval_id", req.ApprovalID, "decision", decision)
		err = nil
	}
	if err != nil {
		err = fmt.Errorf("submit approval %s: %w", req.ApprovalID, err)
		c.log.Error("forwarding approval decision failed",
			"session_id", req.SessionID, "approval_id", req.ApprovalID, "error", err)
	}
	c.finish(Resolution{Request: req, Decision: decision, Source: source, Err: err})
	return err
}

func (c *Coordinator) finish(res Resolution) {
	res.At = c.clock.Now()
	if c.recorder != nil {
		if err := c.recorder.RecordApproval(context.Background(), res); err != nil {
			c.log.Warn("recording approval failed", "approval_id", res.Request.ApprovalID, "error", err)
		}
	}
	c.notifier.ApprovalResolved(res)
}
