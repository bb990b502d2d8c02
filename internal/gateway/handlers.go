package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ampsession/internal/api"
	"ampsession/internal/events"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError mirrors the backend's {"detail": {"error": {...}}} body.
func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, map[string]any{
		"detail": map[string]any{
			"error": api.ErrorDetail{Code: code, Message: message, Details: details},
		},
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *Session {
	id := r.PathValue("id")
	sess := s.Session(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, api.CodeSessionNotFound,
			"Session with ID '"+id+"' not found", map[string]any{"session_id": id})
	}
	return sess
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", nil)
		return
	}
	if req.Profile == "" {
		req.Profile = "dev"
	}

	sess := newSession(uuid.NewString(), req.Profile)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	slog.Info("fake session created", "session_id", sess.ID, "profile", req.Profile)
	writeJSON(w, http.StatusCreated, api.CreateSessionResponse{
		SessionID: sess.ID,
		Status:    "created",
		Profile:   sess.Profile,
		CreatedAt: sess.CreatedAt,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	all := s.Sessions()
	resp := api.SessionList{Sessions: []api.SessionListItem{}, Total: len(all)}
	for _, sess := range all {
		st := sess.snapshot()
		if status != "" && st.Status != status {
			continue
		}
		if len(resp.Sessions) == limit {
			break
		}
		resp.Sessions = append(resp.Sessions, api.SessionListItem{
			SessionID: st.SessionID,
			Status:    st.Status,
			Profile:   st.Profile,
			CreatedAt: st.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sess.snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()

	sess.mu.Lock()
	sess.status = api.StatusStopped
	sess.pending = nil
	usage := events.TokenUsage{InputTokens: sess.usage.InputTokens, OutputTokens: sess.usage.OutputTokens}
	sess.mu.Unlock()

	_ = sess.Emit(events.SessionEnd{Meta: events.Meta{SessionID: sess.ID}, Reason: "user_stopped", TokenUsage: &usage})
	sess.closeStreams()
	writeJSON(w, http.StatusOK, api.DeleteSessionResponse{Status: "stopped", Message: "Session stopped and cleaned up"})
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	var req api.PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", nil)
		return
	}

	sess.mu.Lock()
	if sess.status == api.StatusProcessing || sess.status == api.StatusAwaitingApproval {
		sess.mu.Unlock()
		writeError(w, http.StatusConflict, api.CodeSessionBusy,
			"Session is already processing another prompt", map[string]any{"session_id": sess.ID})
		return
	}
	sess.status = api.StatusProcessing
	sess.prompts = append(sess.prompts, req.Prompt)
	sess.LastActivity = time.Now()
	sess.mu.Unlock()

	_ = sess.Emit(events.PromptSubmit{Meta: events.Meta{SessionID: sess.ID}, Prompt: req.Prompt, ContextUpdate: req.ContextUpdate})
	go s.responder(sess, req.Prompt)

	writeJSON(w, http.StatusOK, api.PromptResponse{
		RequestID: "req-" + uuid.NewString()[:8],
		Status:    "processing",
		Message:   "Prompt submitted, subscribe to events for response",
	})
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	var req api.ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", nil)
		return
	}

	sess.mu.Lock()
	pending := sess.pending
	if pending == nil {
		sess.mu.Unlock()
		writeError(w, http.StatusBadRequest, api.CodeNoPendingApproval,
			"No pending approval for this session", map[string]any{"session_id": sess.ID})
		return
	}
	sess.decisions = append(sess.decisions, req.Decision)
	decision := req.Decision
	if decision == "AlwaysAllow" {
		sess.alwaysAllow = true
		decision = "Allow"
	}
	sess.pending = nil
	sess.status = api.StatusProcessing
	sess.mu.Unlock()

	select {
	case sess.decided <- decision:
	default:
	}
	_ = sess.Emit(events.ApprovalGranted{Meta: events.Meta{SessionID: sess.ID}, ApprovalID: pending.ApprovalID, Decision: decision})
	writeJSON(w, http.StatusOK, api.ApprovalResponse{Status: "approved", Message: "Approval decision recorded"})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.ProfileList{Profiles: s.profiles})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.started).Seconds())
	writeJSON(w, http.StatusOK, api.Health{
		Status:         "healthy",
		Version:        "0.1.0",
		UptimeSeconds:  &uptime,
		ActiveSessions: len(s.Sessions()),
	})
}

func (s *Server) sessionStart(sess *Session) []byte {
	raw, _ := events.Encode(events.SessionStart{
		Meta:      events.Meta{SessionID: sess.ID},
		Profile:   sess.Profile,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return raw
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	ch := sess.subscribe()
	defer sess.unsubscribe(ch)

	sse := NewSSEWriter(w)
	if err := sse.Send("message", s.sessionStart(sess)); err != nil {
		return
	}

	var ping <-chan time.Time
	if s.keepalive > 0 {
		ticker := time.NewTicker(s.keepalive)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			if err := sse.Send("message", raw); err != nil {
				return
			}
		case <-ping:
			if err := sse.Send("ping", []byte("keepalive")); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "session_id", sess.ID, "error", err)
		return
	}
	defer conn.Close()

	ch := sess.subscribe()
	defer sess.unsubscribe(ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteMessage(websocket.TextMessage, s.sessionStart(sess)); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case raw, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		}
	}
}
