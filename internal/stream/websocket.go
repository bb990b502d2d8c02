package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// WSDialer opens {ws-base}/sessions/{id}/ws. Each text message carries
// one event envelope.
type WSDialer struct {
	BaseURL string
	Dialer  *websocket.Dialer
}

// NewWSDialer accepts an http(s) or ws(s) base URL.
func NewWSDialer(baseURL string) *WSDialer {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return &WSDialer{BaseURL: base, Dialer: websocket.DefaultDialer}
}

func (d *WSDialer) Dial(ctx context.Context, sessionID string) (Stream, error) {
	u := d.BaseURL + "/sessions/" + url.PathEscape(sessionID) + "/ws"
	conn, resp, err := d.Dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, &StatusError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	return &wsStream{conn: conn}, nil
}

type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Next() ([]byte, error) {
	for {
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if typ == websocket.TextMessage {
			return data, nil
		}
	}
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}
