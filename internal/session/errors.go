package session

import (
	"errors"
	"fmt"
)

var ErrNoSession = errors.New("no active session")

// PromptError is returned by SendPrompt when a prompt could not be
// delivered. Recovered is set when the failure happened after the
// controller had already recreated a lost session.
type PromptError struct {
	SessionID string
	Recovered bool
	Err       error
}

func (e *PromptError) Error() string {
	if e.Recovered {
		return fmt.Sprintf("prompt failed after recreating session %s: %v", e.SessionID, e.Err)
	}
	return fmt.Sprintf("prompt failed for session %s: %v", e.SessionID, e.Err)
}

func (e *PromptError) Unwrap() error {
	return e.Err
}
