package stream

import "fmt"

// MaxReconnectError is delivered to Handlers.OnError once the
// connection gives up.
type MaxReconnectError struct {
	Attempts int
	Last     error
}

func (e *MaxReconnectError) Error() string {
	return fmt.Sprintf("max reconnect attempts (%d) reached: %v", e.Attempts, e.Last)
}

func (e *MaxReconnectError) Unwrap() error {
	return e.Last
}

// StatusError is returned by dialers when the server refuses the stream.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("event stream: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("event stream: unexpected status %d: %s", e.StatusCode, e.Body)
}
