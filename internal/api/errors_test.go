package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		code     string
		message  string
		notFound bool
	}{
		{
			name:     "nested detail",
			status:   404,
			body:     `{"detail":{"error":{"code":"SESSION_NOT_FOUND","message":"Session with ID 'x' not found","details":{"session_id":"x"}}}}`,
			code:     CodeSessionNotFound,
			message:  "Session with ID 'x' not found",
			notFound: true,
		},
		{
			name:    "detail string",
			status:  422,
			body:    `{"detail":"validation failed"}`,
			message: "validation failed",
		},
		{
			name:    "top level error",
			status:  409,
			body:    `{"error":{"code":"SESSION_BUSY","message":"busy"}}`,
			code:    CodeSessionBusy,
			message: "busy",
		},
		{
			name:     "bare 404",
			status:   404,
			body:     `not here`,
			message:  "not here",
			notFound: true,
		},
		{
			name:    "empty body",
			status:  500,
			message: "Internal Server Error",
		},
		{
			name:    "other code on 404",
			status:  404,
			body:    `{"detail":{"error":{"code":"NO_PENDING_APPROVAL","message":"none"}}}`,
			code:    CodeNoPendingApproval,
			message: "none",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(tt.status, []byte(tt.body))
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.notFound, IsSessionNotFound(err))
		})
	}
}

func TestIsSessionNotFoundUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("send prompt: %w", &Error{StatusCode: http.StatusNotFound, Code: CodeSessionNotFound})
	assert.True(t, IsSessionNotFound(wrapped))
	assert.True(t, IsCode(wrapped, CodeSessionNotFound))
	assert.False(t, IsSessionNotFound(fmt.Errorf("plain")))
	assert.False(t, IsSessionNotFound(nil))
}
