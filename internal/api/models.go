package api

import (
	"encoding/json"
	"time"
)

// Workspace context sent with session creation and prompts. Field tags
// carry yaml names too so the same types load from a context file.

type Position struct {
	Line      int `json:"line" yaml:"line"`
	Character int `json:"character" yaml:"character"`
}

type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

type OpenFile struct {
	Path           string    `json:"path" yaml:"path"`
	Language       string    `json:"language" yaml:"language"`
	Content        string    `json:"content" yaml:"content"`
	CursorPosition *Position `json:"cursor_position,omitempty" yaml:"cursor_position,omitempty"`
}

type GitState struct {
	Branch         string   `json:"branch" yaml:"branch"`
	StagedFiles    []string `json:"staged_files" yaml:"staged_files"`
	ModifiedFiles  []string `json:"modified_files" yaml:"modified_files"`
	UntrackedFiles []string `json:"untracked_files" yaml:"untracked_files"`
}

type Diagnostic struct {
	Path     string `json:"path" yaml:"path"`
	Severity string `json:"severity" yaml:"severity"` // error, warning, info, hint
	Message  string `json:"message" yaml:"message"`
	Range    Range  `json:"range" yaml:"range"`
}

type Selection struct {
	Path  string `json:"path" yaml:"path"`
	Text  string `json:"text" yaml:"text"`
	Range Range  `json:"range" yaml:"range"`
}

type WorkspaceContext struct {
	WorkspaceRoot string       `json:"workspace_root" yaml:"workspace_root"`
	OpenFiles     []OpenFile   `json:"open_files,omitempty" yaml:"open_files,omitempty"`
	GitState      *GitState    `json:"git_state,omitempty" yaml:"git_state,omitempty"`
	Diagnostics   []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Selection     *Selection   `json:"selection,omitempty" yaml:"selection,omitempty"`
}

type Credentials struct {
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty"`
}

type CreateSessionRequest struct {
	Profile     string            `json:"profile"`
	Model       string            `json:"model,omitempty"`
	Credentials *Credentials      `json:"credentials,omitempty"`
	Context     *WorkspaceContext `json:"context,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Profile   string    `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
}

type PromptRequest struct {
	Prompt        string         `json:"prompt"`
	ContextUpdate map[string]any `json:"context_update,omitempty"`
}

type PromptResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type ApprovalRequest struct {
	Decision string `json:"decision"`
}

type ApprovalResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// SessionStatus values reported by the server.
const (
	StatusIdle             = "idle"
	StatusProcessing       = "processing"
	StatusAwaitingApproval = "awaiting_approval"
	StatusError            = "error"
	StatusStopped          = "stopped"
)

type SessionStatus struct {
	SessionID       string          `json:"session_id"`
	Status          string          `json:"status"`
	Profile         string          `json:"profile"`
	CreatedAt       time.Time       `json:"created_at"`
	LastActivity    time.Time       `json:"last_activity"`
	MessageCount    int             `json:"message_count"`
	TokenUsage      *TokenUsage     `json:"token_usage,omitempty"`
	PendingApproval json.RawMessage `json:"pending_approval,omitempty"`
}

type SessionListItem struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Profile   string    `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionList struct {
	Sessions []SessionListItem `json:"sessions"`
	Total    int               `json:"total"`
}

type DeleteSessionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ProfileSummary struct {
	Name        string `json:"name"`
	Collection  string `json:"collection,omitempty"`
	Description string `json:"description"`
	Extends     string `json:"extends,omitempty"`
}

type ProfileList struct {
	Profiles []ProfileSummary `json:"profiles"`
}

type Health struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	UptimeSeconds  *int   `json:"uptime_seconds,omitempty"`
	ActiveSessions int    `json:"active_sessions"`
}

// ErrorDetail is the server's error payload.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
