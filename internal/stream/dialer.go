package stream

import "fmt"

// NewDialer picks the transport by name: "sse" (default) or "websocket".
func NewDialer(transport, baseURL string) (Dialer, error) {
	switch transport {
	case "", "sse":
		return NewSSEDialer(baseURL), nil
	case "websocket", "ws":
		return NewWSDialer(baseURL), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}
