package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ampsession/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsJSON(t *testing.T) {
	var got api.CreateSessionRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sessions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"session_id":"abc","status":"created","profile":"dev","created_at":"2025-01-02T03:04:05Z"}`))
	}))
	defer ts.Close()

	c := api.NewClient(ts.URL + "/")
	resp, err := c.CreateSession(context.Background(), api.CreateSessionRequest{
		Profile:     "dev",
		Credentials: &api.Credentials{AnthropicAPIKey: "sk-1"},
		Context:     &api.WorkspaceContext{WorkspaceRoot: "/src"},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, 2025, resp.CreatedAt.Year())
	assert.Equal(t, "sk-1", got.Credentials.AnthropicAPIKey)
	assert.Equal(t, "/src", got.Context.WorkspaceRoot)
	assert.Equal(t, ts.URL, c.BaseURL())
}

func TestClientListQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "idle", r.URL.Query().Get("status"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"sessions":[],"total":0}`))
	}))
	defer ts.Close()

	list, err := api.NewClient(ts.URL).ListSessions(context.Background(), "idle", 5)
	require.NoError(t, err)
	assert.Empty(t, list.Sessions)
}

func TestClientErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":{"error":{"code":"SESSION_NOT_FOUND","message":"gone"}}}`))
	}))
	defer ts.Close()

	_, err := api.NewClient(ts.URL).SubmitPrompt(context.Background(), "a/b", api.PromptRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, api.IsSessionNotFound(err))
	assert.Contains(t, err.Error(), "gone")
}

func TestEventsURLEscapesID(t *testing.T) {
	c := api.NewClient("http://localhost:8765")
	assert.Equal(t, "http://localhost:8765/sessions/a%2Fb/events", c.EventsURL("a/b"))
}
