package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SSEDialer opens GET {BaseURL}/sessions/{id}/events.
type SSEDialer struct {
	BaseURL string
	Client  *http.Client
}

// NewSSEDialer returns a dialer with an instrumented client. The client
// has no timeout; the stream lives until the context is cancelled.
func NewSSEDialer(baseURL string) *SSEDialer {
	return &SSEDialer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (d *SSEDialer) Dial(ctx context.Context, sessionID string) (Stream, error) {
	u := d.BaseURL + "/sessions/" + url.PathEscape(sessionID) + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dial event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return &sseStream{body: resp.Body, r: bufio.NewReader(resp.Body)}, nil
}

type sseStream struct {
	body io.ReadCloser
	r    *bufio.Reader
}

// Next returns the data of the next SSE event. Keepalive pings and
// comment lines are skipped.
func (s *sseStream) Next() ([]byte, error) {
	var (
		name string
		data [][]byte
	)
	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) == 0:
			if len(data) > 0 && name != "ping" {
				return bytes.Join(data, []byte("\n")), nil
			}
			name, data = "", nil
		case line[0] == ':':
		default:
			field, value, _ := bytes.Cut(line, []byte(":"))
			value = bytes.TrimPrefix(value, []byte(" "))
			switch string(field) {
			case "event":
				name = string(value)
			case "data":
				data = append(data, value)
			}
		}
	}
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
