// Package gateway is an in-memory session server speaking the same
// REST, SSE and WebSocket protocol as the real backend. It drives the
// client packages' tests and the serve-fake command.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"ampsession/internal/api"
	"ampsession/internal/events"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Responder produces the events for one prompt. It runs in its own
// goroutine after the prompt request has been accepted.
type Responder func(s *Session, prompt string)

// EchoResponder streams "echo: <prompt>" as two content deltas and
// completes the prompt.
func EchoResponder(s *Session, prompt string) {
	reply := "echo: " + prompt
	half := len(reply) / 2
	for _, part := range []string{reply[:half], reply[half:]} {
		_ = s.Emit(events.ContentDelta{Meta: events.Meta{SessionID: s.ID}, Delta: part})
	}
	_ = s.Complete(reply)
}

type Server struct {
	mux       *http.ServeMux
	upgrader  websocket.Upgrader
	responder Responder
	keepalive time.Duration
	started   time.Time
	profiles  []api.ProfileSummary

	mu       sync.Mutex
	sessions map[string]*Session
}

type Option func(*Server)

func WithResponder(r Responder) Option {
	return func(s *Server) { s.responder = r }
}

// WithKeepalive sets the SSE ping interval. Zero disables pings.
func WithKeepalive(d time.Duration) Option {
	return func(s *Server) { s.keepalive = d }
}

func WithProfiles(p ...api.ProfileSummary) Option {
	return func(s *Server) { s.profiles = p }
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		responder: EchoResponder,
		keepalive: 5 * time.Second,
		started:   time.Now(),
		profiles: []api.ProfileSummary{
			{Name: "dev", Description: "Development profile"},
		},
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	s.mux.HandleFunc("GET /sessions/{id}/events", s.handleEvents)
	s.mux.HandleFunc("GET /sessions/{id}/ws", s.handleWebSocket)
	s.mux.HandleFunc("POST /sessions/{id}/prompt", s.handlePrompt)
	s.mux.HandleFunc("POST /sessions/{id}/approval", s.handleApproval)
	s.mux.HandleFunc("GET /profiles", s.handleListProfiles)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Session returns the live session with id, or nil.
func (s *Server) Session(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Sessions returns every live session.
func (s *Server) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Drop forgets a session and ends its streams, the way a backend
// restart loses every session.
func (s *Server) Drop(id string) {
	s.mu.Lock()
	sess := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if sess != nil {
		sess.closeStreams()
	}
}

// Disconnect ends the open streams of a session but keeps it alive.
func (s *Server) Disconnect(id string) {
	if sess := s.Session(id); sess != nil {
		sess.closeStreams()
	}
}

// RequestApproval gates the session on a decision and emits
// approval:required. It reports false when the session has always-allow
// set and so needs no approval.
func (s *Server) RequestApproval(id, prompt string, options []string, timeout time.Duration, def string) (string, bool, error) {
	sess := s.Session(id)
	if sess == nil {
		return "", false, errors.New("session not found")
	}

	sess.mu.Lock()
	if sess.alwaysAllow {
		sess.mu.Unlock()
		return "", false, nil
	}
	req := events.ApprovalRequired{
		Meta:       events.Meta{SessionID: id},
		ApprovalID: "appr-" + uuid.NewString()[:8],
		Prompt:     prompt,
		Options:    options,
		Timeout:    timeout.Seconds(),
		Default:    def,
		Context:    map[string]any{},
	}
	sess.pending = &req
	sess.status = api.StatusAwaitingApproval
	sess.mu.Unlock()

	return req.ApprovalID, true, sess.Emit(req)
}

// WithApprovals gates every prompt behind an approval request.
func WithApprovals(timeout time.Duration) Option {
	return func(s *Server) { s.responder = s.ApprovalResponder(timeout) }
}
