package stream_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"ampsession/internal/api"
	"ampsession/internal/gateway"
	"ampsession/internal/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamsFromServer(t *testing.T) {
	for _, transport := range []string{"sse", "websocket"} {
		t.Run(transport, func(t *testing.T) {
			srv := gateway.NewServer(gateway.WithKeepalive(5 * time.Millisecond))
			ts := httptest.NewServer(srv.Handler())
			defer ts.Close()
			client := api.NewClient(ts.URL)
			ctx := context.Background()

			created, err := client.CreateSession(ctx, api.CreateSessionRequest{Profile: "dev"})
			require.NoError(t, err)

			d, err := stream.NewDialer(transport, ts.URL)
			require.NoError(t, err)
			conn := stream.New(d)
			rec := newRecorder()
			conn.Subscribe(created.SessionID, rec.handlers())
			defer conn.Unsubscribe()
			waitFor(t, rec.connected)

			require.Eventually(t, func() bool {
				return srv.Session(created.SessionID).Subscribers() == 1
			}, 2*time.Second, time.Millisecond)

			_, err = client.SubmitPrompt(ctx, created.SessionID, api.PromptRequest{Prompt: "hello"})
			require.NoError(t, err)

			assert.Eventually(t, func() bool {
				_, n := rec.snapshot()
				return n == 1
			}, 2*time.Second, time.Millisecond)
			deltas, _ := rec.snapshot()
			assert.Equal(t, []string{"echo:", " hello"}, deltas)
		})
	}
}

func TestReconnectsAfterServerDropsStream(t *testing.T) {
	srv := gateway.NewServer()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	client := api.NewClient(ts.URL)

	created, err := client.CreateSession(context.Background(), api.CreateSessionRequest{Profile: "dev"})
	require.NoError(t, err)

	conn := stream.New(stream.NewSSEDialer(ts.URL), stream.WithBackoff(time.Millisecond, time.Millisecond))
	rec := newRecorder()
	conn.Subscribe(created.SessionID, rec.handlers())
	defer conn.Unsubscribe()
	waitFor(t, rec.connected)

	srv.Disconnect(created.SessionID)

	got := waitFor(t, rec.reconnects)
	assert.Equal(t, 1, got.attempt)
	waitFor(t, rec.connected)
	assert.Equal(t, 0, conn.Attempt())
}
