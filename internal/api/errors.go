package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Server error codes.
const (
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeSessionBusy         = "SESSION_BUSY"
	CodeNoPendingApproval   = "NO_PENDING_APPROVAL"
	CodeSessionCreateFailed = "SESSION_CREATE_FAILED"
	CodePromptSubmitFailed  = "PROMPT_SUBMIT_FAILED"
	CodeApprovalFailed      = "APPROVAL_FAILED"
	CodeSessionDeleteFailed = "SESSION_DELETE_FAILED"
)

// Error is a non-2xx reply from the session server.
type Error struct {
	Details    map[string]any
	Code       string
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server error %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// IsSessionNotFound reports whether err says the remote session no
// longer exists, e.g. because the backend restarted.
func IsSessionNotFound(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code != "" {
		return apiErr.Code == CodeSessionNotFound
	}
	return apiErr.StatusCode == http.StatusNotFound
}

// IsCode reports whether err is an *Error carrying code.
func IsCode(err error, code string) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// parseError builds an *Error from a failed response body. The server
// nests the payload as {"detail": {"error": {...}}}; a bare
// {"detail": "..."} or {"error": {...}} is accepted too.
func parseError(status int, body []byte) *Error {
	apiErr := &Error{StatusCode: status, Message: http.StatusText(status)}

	var wrapped struct {
		Detail json.RawMessage `json:"detail"`
		Error  *ErrorDetail    `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		if len(body) > 0 {
			apiErr.Message = string(body)
		}
		return apiErr
	}

	detail := wrapped.Error
	if len(wrapped.Detail) > 0 {
		var nested struct {
			Error *ErrorDetail `json:"error"`
		}
		var text string
		switch {
		case json.Unmarshal(wrapped.Detail, &nested) == nil && nested.Error != nil:
			detail = nested.Error
		case json.Unmarshal(wrapped.Detail, &text) == nil:
			apiErr.Message = text
		}
	}
	if detail != nil {
		apiErr.Code = detail.Code
		apiErr.Message = detail.Message
		apiErr.Details = detail.Details
	}
	return apiErr
}
