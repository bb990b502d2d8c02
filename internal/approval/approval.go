// Package approval mediates approval requests from the remote agent.
// Each request races a user decision against a timeout default, and the
// first of them to arrive is the only decision forwarded to the server.
package approval

import (
	"context"
	"errors"
	"time"

	"ampsession/internal/api"
	"ampsession/internal/events"
)

var ErrNoPendingApproval = errors.New("no pending approval")

const (
	DecisionAllow       = "Allow"
	DecisionDeny        = "Deny"
	DecisionAlwaysAllow = "AlwaysAllow"
)

const (
	DefaultTimeout  = 300 * time.Second
	DefaultDecision = DecisionDeny
)

// DefaultOptions are offered when a request carries none.
var DefaultOptions = []string{DecisionAlwaysAllow, DecisionAllow, DecisionDeny}

// Source says how a request was resolved.
type Source string

const (
	SourceUser       Source = "user"
	SourceTimeout    Source = "timeout"
	SourceAuto       Source = "auto"
	SourceServer     Source = "server"
	SourceDiscarded  Source = "discarded"
	SourceSuperseded Source = "superseded"
)

// Forwarded reports whether resolutions from s send a decision to the
// server.
func (s Source) Forwarded() bool {
	return s == SourceUser || s == SourceTimeout || s == SourceAuto
}

type Request struct {
	ApprovalID string
	SessionID  string
	Prompt     string
	Options    []string
	Timeout    time.Duration
	Default    string
	Context    map[string]any
}

// FromEvent converts an approval:required event, filling in defaults
// for missing fields.
func FromEvent(ev events.ApprovalRequired) Request {
	req := Request{
		ApprovalID: ev.ApprovalID,
		SessionID:  ev.SessionID,
		Prompt:     ev.Prompt,
		Options:    ev.Options,
		Timeout:    time.Duration(ev.Timeout * float64(time.Second)),
		Default:    ev.Default,
		Context:    ev.Context,
	}
	if len(req.Options) == 0 {
		req.Options = DefaultOptions
	}
	if req.Timeout <= 0 {
		req.Timeout = DefaultTimeout
	}
	if req.Default == "" {
		req.Default = DefaultDecision
	}
	return req
}

type Resolution struct {
	Request  Request
	Decision string
	Source   Source
	Err      error
	At       time.Time
}

// Submitter forwards a decision to the server. *api.Client satisfies it.
type Submitter interface {
	SubmitApproval(ctx context.Context, sessionID, decision string) (*api.ApprovalResponse, error)
}

// Notifier is told when a request starts waiting and when it resolves.
// Calls happen outside the coordinator's lock.
type Notifier interface {
	ApprovalPending(req Request)
	ApprovalResolved(res Resolution)
}

// NotifyFuncs adapts a pair of functions to Notifier. Nil fields are
// skipped.
type NotifyFuncs struct {
	Pending  func(Request)
	Resolved func(Resolution)
}

func (n NotifyFuncs) ApprovalPending(req Request) {
	if n.Pending != nil {
		n.Pending(req)
	}
}

func (n NotifyFuncs) ApprovalResolved(res Resolution) {
	if n.Resolved != nil {
		n.Resolved(res)
	}
}

// Recorder persists resolutions.
type Recorder interface {
	RecordApproval(ctx context.Context, res Resolution) error
}
