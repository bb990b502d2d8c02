package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"ampsession/internal/api"
	"ampsession/internal/events"
)

// Session is the fake server's record of one remote session.
type Session struct {
	ID           string
	Profile      string
	CreatedAt    time.Time
	LastActivity time.Time

	mu          sync.Mutex
	status      string
	prompts     []string
	decisions   []string
	pending     *events.ApprovalRequired
	alwaysAllow bool
	usage       api.TokenUsage
	subscribers map[chan []byte]struct{}
	decided     chan string
}

func newSession(id, profile string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Profile:      profile,
		CreatedAt:    now,
		LastActivity: now,
		status:       api.StatusIdle,
		subscribers:  make(map[chan []byte]struct{}),
		decided:      make(chan string, 1),
	}
}

// Emit encodes ev and pushes it to every open stream of the session.
// Slow subscribers drop frames rather than block the emitter.
func (s *Session) Emit(ev events.Event) error {
	raw, err := events.Encode(ev)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- raw:
		default:
		}
	}
	return nil
}

// EmitRaw pushes an already encoded frame, which need not be valid.
func (s *Session) EmitRaw(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- raw:
		default:
		}
	}
}

func (s *Session) subscribe() chan []byte {
	ch := make(chan []byte, 256)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Session) unsubscribe(ch chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// closeStreams ends every open stream, as a server restart would.
func (s *Session) closeStreams() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Subscribers returns the number of open streams.
func (s *Session) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Prompts returns the prompts received so far.
func (s *Session) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Decisions returns the approval decisions received so far.
func (s *Session) Decisions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.decisions...)
}

func (s *Session) snapshot() api.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := api.SessionStatus{
		SessionID:    s.ID,
		Status:       s.status,
		Profile:      s.Profile,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		MessageCount: len(s.prompts),
	}
	if s.usage.InputTokens > 0 {
		usage := s.usage
		st.TokenUsage = &usage
	}
	if s.pending != nil {
		st.PendingApproval, _ = json.Marshal(s.pending)
	}
	return st
}

// Complete finishes the current prompt: usage grows, the session goes
// idle and prompt:complete is emitted.
func (s *Session) Complete(response string) error {
	s.mu.Lock()
	s.usage.InputTokens += 10
	s.usage.OutputTokens += len(response)
	usage := events.TokenUsage{InputTokens: s.usage.InputTokens, OutputTokens: s.usage.OutputTokens}
	s.status = api.StatusIdle
	s.LastActivity = time.Now()
	s.mu.Unlock()

	return s.Emit(events.PromptComplete{
		Meta:       events.Meta{SessionID: s.ID},
		Response:   response,
		TokenUsage: &usage,
	})
}
