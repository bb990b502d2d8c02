// Package session ties one remote session together: it creates the
// session, keeps its event stream subscribed, routes approvals to the
// coordinator and recovers once from a session the server has lost.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ampsession/internal/api"
	"ampsession/internal/approval"
	"ampsession/internal/events"
	"ampsession/internal/stream"
	"ampsession/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Backend is the REST surface the controller needs. *api.Client
// satisfies it.
type Backend interface {
	approval.Submitter
	CreateSession(ctx context.Context, req api.CreateSessionRequest) (*api.CreateSessionResponse, error)
	SubmitPrompt(ctx context.Context, sessionID string, req api.PromptRequest) (*api.PromptResponse, error)
	SessionStatus(ctx context.Context, sessionID string) (*api.SessionStatus, error)
	DeleteSession(ctx context.Context, sessionID string) (*api.DeleteSessionResponse, error)
}

// Subscriber is the event stream. *stream.Connection satisfies it.
type Subscriber interface {
	Subscribe(sessionID string, h stream.Handlers)
	Unsubscribe()
}

type StartConfig struct {
	Profile string
	Model   string
	APIKey  string
	Context *api.WorkspaceContext
}

// Callbacks are invoked on the stream goroutine, except
// OnSessionRecreated which runs on the goroutine calling SendPrompt.
type Callbacks struct {
	Events events.Handlers

	OnConnected        func()
	OnReconnecting     func(attempt int, delay time.Duration)
	OnError            func(err error)
	OnSessionRecreated func(oldID, newID string)
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

type Controller struct {
	backend Backend
	conn    Subscriber
	coord   *approval.Coordinator
	cb      Callbacks
	log     *slog.Logger

	mu        sync.Mutex
	sessionID string
	cfg       StartConfig
}

func New(backend Backend, conn Subscriber, coord *approval.Coordinator, cb Callbacks, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		conn:    conn,
		coord:   coord,
		cb:      cb,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the current session, or "" when there is none.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// CreateAndStart creates a remote session and subscribes to its events.
func (c *Controller) CreateAndStart(ctx context.Context, cfg StartConfig) (string, error) {
	ctx, span := trace.Tracer().Start(ctx, "session.create",
		oteltrace.WithAttributes(
			attribute.String("session.profile", cfg.Profile),
			attribute.String("session.model", cfg.Model),
		),
	)
	defer span.End()

	req := api.CreateSessionRequest{
		Profile: cfg.Profile,
		Model:   cfg.Model,
		Context: cfg.Context,
	}
	if cfg.APIKey != "" {
		req.Credentials = &api.Credentials{AnthropicAPIKey: cfg.APIKey}
	}

	resp, err := c.backend.CreateSession(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("session.id", resp.SessionID))

	c.mu.Lock()
	c.sessionID = resp.SessionID
	c.cfg = cfg
	c.mu.Unlock()

	c.coord.Begin(resp.SessionID)
	c.conn.Subscribe(resp.SessionID, c.handlers())

	c.log.Info("session started", "session_id", resp.SessionID, "profile", resp.Profile)
	return resp.SessionID, nil
}

// SendPrompt submits text to the current session. If the server no
// longer knows the session it is recreated with the last StartConfig
// and the prompt is resubmitted, once.
func (c *Controller) SendPrompt(ctx context.Context, text string, contextUpdate map[string]any) error {
	id := c.SessionID()
	if id == "" {
		return ErrNoSession
	}

	truncated := text
	if len(truncated) > 200 {
		truncated = truncated[:200]
	}
	ctx, span := trace.Tracer().Start(ctx, "session.prompt",
		oteltrace.WithAttributes(
			attribute.String("session.id", id),
			attribute.String("user.message", truncated),
		),
	)
	defer span.End()

	req := api.PromptRequest{Prompt: text, ContextUpdate: contextUpdate}
	_, err := c.backend.SubmitPrompt(ctx, id, req)
	if err == nil {
		return nil
	}
	if !api.IsSessionNotFound(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &PromptError{SessionID: id, Err: err}
	}

	c.log.Warn("session lost, recreating", "session_id", id, "error", err)
	span.AddEvent("session.recreate")

	c.mu.Lock()
	if c.sessionID == id {
		c.sessionID = ""
	}
	cfg := c.cfg
	c.mu.Unlock()

	newID, err := c.CreateAndStart(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &PromptError{SessionID: id, Recovered: true, Err: err}
	}
	if c.cb.OnSessionRecreated != nil {
		c.cb.OnSessionRecreated(id, newID)
	}

	if _, err := c.backend.SubmitPrompt(ctx, newID, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &PromptError{SessionID: newID, Recovered: true, Err: err}
	}
	return nil
}

// Resolve answers the pending approval.
func (c *Controller) Resolve(ctx context.Context, approvalID, decision string) error {
	return c.coord.Resolve(ctx, approvalID, decision)
}

// PendingApproval returns the approval currently waiting for an answer.
func (c *Controller) PendingApproval() (approval.Request, bool) {
	return c.coord.Pending()
}

func (c *Controller) Status(ctx context.Context) (*api.SessionStatus, error) {
	id := c.SessionID()
	if id == "" {
		return nil, ErrNoSession
	}
	return c.backend.SessionStatus(ctx, id)
}

// Stop deletes the remote session and tears down the stream and any
// pending approval. Calling it again, or without a session, is a no-op.
// It must not be called from inside a stream callback.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	id := c.sessionID
	c.sessionID = ""
	c.mu.Unlock()

	var delErr error
	if id != "" {
		ctx, span := trace.Tracer().Start(ctx, "session.stop",
			oteltrace.WithAttributes(attribute.String("session.id", id)),
		)
		if _, err := c.backend.DeleteSession(ctx, id); err != nil && !api.IsSessionNotFound(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			delErr = fmt.Errorf("stop session %s: %w", id, err)
		}
		span.End()
	}

	c.conn.Unsubscribe()
	c.coord.End()

	if id != "" {
		c.log.Info("session stopped", "session_id", id)
	}
	return delErr
}

// handlers layers the coordinator's approval routing over the caller's
// event handlers.
func (c *Controller) handlers() stream.Handlers {
	h := c.cb.Events

	onRequired := h.OnApprovalRequired
	h.OnApprovalRequired = func(ev events.ApprovalRequired) {
		c.coord.HandleRequired(ev)
		if onRequired != nil {
			onRequired(ev)
		}
	}
	onGranted := h.OnApprovalGranted
	h.OnApprovalGranted = func(ev events.ApprovalGranted) {
		c.coord.Settle(ev.ApprovalID, ev.Decision)
		if onGranted != nil {
			onGranted(ev)
		}
	}
	onDenied := h.OnApprovalDenied
	h.OnApprovalDenied = func(ev events.ApprovalDenied) {
		c.coord.Settle(ev.ApprovalID, ev.Decision)
		if onDenied != nil {
			onDenied(ev)
		}
	}

	return stream.Handlers{
		Events:         h,
		OnConnected:    c.cb.OnConnected,
		OnReconnecting: c.cb.OnReconnecting,
		OnError:        c.cb.OnError,
	}
}
