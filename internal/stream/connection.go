// Package stream keeps a live event stream to one remote session open,
// reconnecting with exponential backoff, and hands every frame to an
// events.Handlers in arrival order.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ampsession/internal/clock"
	"ampsession/internal/events"

	"github.com/cenkalti/backoff/v5"
)

// errSessionEnded stops the loop once the server has announced the end
// of the session; the close that follows is expected.
var errSessionEnded = errors.New("session ended")

const (
	DefaultMaxAttempts = 10
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// Stream is one open transport. Next blocks until a frame arrives and
// returns an error once the transport is gone.
type Stream interface {
	Next() ([]byte, error)
	Close() error
}

// Dialer opens the session-scoped event stream.
type Dialer interface {
	Dial(ctx context.Context, sessionID string) (Stream, error)
}

// Handlers receives everything a subscription produces. All callbacks
// run on the subscription's loop goroutine, one at a time.
type Handlers struct {
	Events events.Handlers

	OnConnected    func()
	OnReconnecting func(attempt int, delay time.Duration)
	OnError        func(err error)
}

type Option func(*Connection)

func WithClock(c clock.Clock) Option {
	return func(conn *Connection) { conn.clock = c }
}

func WithMaxAttempts(n int) Option {
	return func(conn *Connection) { conn.maxAttempts = n }
}

// WithBackoff sets the first reconnect delay and the delay cap.
func WithBackoff(base, limit time.Duration) Option {
	return func(conn *Connection) {
		conn.baseDelay = base
		conn.maxDelay = limit
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(conn *Connection) { conn.log = l }
}

// Connection owns at most one subscription at a time.
type Connection struct {
	dialer      Dialer
	clock       clock.Clock
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	log         *slog.Logger

	// deliver serializes handler calls with Unsubscribe. Lock order is
	// deliver, then mu.
	deliver sync.Mutex

	mu      sync.Mutex
	state   State
	attempt int
	gen     uint64
	cancel  context.CancelFunc
	done    chan struct{}
	stream  Stream
}

func New(d Dialer, opts ...Option) *Connection {
	c := &Connection{
		dialer:      d,
		clock:       clock.Real(),
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempt is the number of consecutive failed connects since the last
// successful open.
func (c *Connection) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Subscribe replaces any current subscription with one for sessionID.
// It returns immediately; progress is reported through h.
func (c *Connection) Subscribe(sessionID string, h Handlers) {
	c.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.done = done
	c.attempt = 0
	c.state = Connecting
	c.mu.Unlock()

	if h.Events.Logger == nil {
		h.Events.Logger = c.log
	}
	c.log.Debug("subscribing to session events", "session_id", sessionID)
	go c.run(ctx, gen, sessionID, h, done)
}

// Unsubscribe stops the current subscription and waits for its loop to
// exit. No handler runs after it returns. It must not be called from
// inside a handler.
func (c *Connection) Unsubscribe() {
	c.deliver.Lock()
	c.mu.Lock()
	c.gen++
	cancel, done, st := c.cancel, c.done, c.stream
	c.cancel, c.done, c.stream = nil, nil, nil
	c.state = Disconnected
	c.attempt = 0
	c.mu.Unlock()
	c.deliver.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if st != nil {
		_ = st.Close()
	}
	<-done
}

func (c *Connection) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// emit runs fn unless the subscription gen has been replaced.
func (c *Connection) emit(gen uint64, fn func()) {
	c.deliver.Lock()
	defer c.deliver.Unlock()
	if !c.current(gen) {
		return
	}
	fn()
}

func (c *Connection) run(ctx context.Context, gen uint64, sessionID string, h Handlers, done chan struct{}) {
	defer close(done)

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     c.baseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         c.maxDelay,
	}
	bo.Reset()

	for {
		err := c.connect(ctx, gen, sessionID, h, bo)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, errSessionEnded) {
			c.mu.Lock()
			if c.gen == gen {
				c.state = Disconnected
			}
			c.mu.Unlock()
			c.log.Info("event stream closed after session end", "session_id", sessionID)
			return
		}

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		attempt := c.attempt
		if attempt >= c.maxAttempts {
			c.state = Failed
			c.mu.Unlock()

			c.log.Error("giving up on event stream", "session_id", sessionID, "attempts", attempt, "error", err)
			c.emit(gen, func() {
				if h.OnError != nil {
					h.OnError(&MaxReconnectError{Attempts: attempt, Last: err})
				}
			})
			return
		}
		c.attempt = attempt + 1
		c.state = Reconnecting
		c.mu.Unlock()

		delay := bo.NextBackOff()
		c.log.Warn("event stream lost, reconnecting",
			"session_id", sessionID, "attempt", attempt+1, "delay", delay, "error", err)
		c.emit(gen, func() {
			if h.OnReconnecting != nil {
				h.OnReconnecting(attempt+1, delay)
			}
		})

		t := c.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		c.mu.Lock()
		if c.gen == gen {
			c.state = Connecting
		}
		c.mu.Unlock()
	}
}

// connect dials once and pumps frames until the transport fails.
func (c *Connection) connect(ctx context.Context, gen uint64, sessionID string, h Handlers, bo *backoff.ExponentialBackOff) error {
	st, err := c.dialer.Dial(ctx, sessionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = st.Close()
		return ctx.Err()
	}
	c.stream = st
	c.attempt = 0
	c.state = Connected
	c.mu.Unlock()
	bo.Reset()

	c.log.Info("event stream connected", "session_id", sessionID)
	c.emit(gen, func() {
		if h.OnConnected != nil {
			h.OnConnected()
		}
	})

	defer func() {
		c.mu.Lock()
		if c.stream == st {
			c.stream = nil
		}
		c.mu.Unlock()
		_ = st.Close()
	}()

	for {
		frame, err := st.Next()
		if err != nil {
			return err
		}
		var ev events.Event
		c.emit(gen, func() {
			ev = events.Dispatch(frame, &h.Events)
		})
		if ev != nil && ev.Kind() == events.KindSessionEnd {
			return errSessionEnded
		}
	}
}
