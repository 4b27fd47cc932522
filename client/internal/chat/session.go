package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chatrelay/chatrelay/client/internal/config"
	"github.com/chatrelay/chatrelay/pkg/event"
)

// ErrNotConnected is returned by Session.Send while no connection is up.
var ErrNotConnected = errors.New("chat: not connected")

// State is the connection state reported in a Notice.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Notice is what a Session delivers to its consumer. Exactly one of Event
// or a state change is meaningful: Event is nil for state notices.
type Notice struct {
	Event event.Event

	State   State
	Err     error
	RetryIn time.Duration
}

type dialFunc func(ctx context.Context, rawURL, username string) (*Conn, error)

// Session keeps a connection to the relay open, reconnecting on failure.
type Session struct {
	cfg     config.ChatConfig
	notices chan Notice
	dialFn  dialFunc // injectable for tests

	mu   sync.Mutex
	conn *Conn
}

// NewSession creates a Session for cfg. Call Run to start it.
func NewSession(cfg config.ChatConfig) *Session {
	return &Session{
		cfg:     cfg,
		notices: make(chan Notice, eventBuffer),
		dialFn:  Dial,
	}
}

// Notices returns the stream of events and state changes. It is closed when
// Run returns.
func (s *Session) Notices() <-chan Notice {
	return s.notices
}

// Send writes text on the current connection.
func (s *Session) Send(text string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Send(text)
}

// Run connects and forwards events until ctx is cancelled, reconnecting
// with backoff whenever the connection is lost.
func (s *Session) Run(ctx context.Context) {
	defer close(s.notices)

	bo := newBackoff(s.cfg.Reconnect.Initial, s.cfg.Reconnect.Max)

	for {
		if ctx.Err() != nil {
			return
		}

		s.notify(ctx, Notice{State: StateConnecting})
		conn, err := s.dialFn(ctx, s.cfg.URL, s.cfg.Username)
		if err != nil {
			wait := bo.next()
			slog.Error("chat: dial failed, will retry",
				"url", s.cfg.URL, "err", err, "retry_in", wait)
			s.notify(ctx, Notice{State: StateDisconnected, Err: err, RetryIn: wait})
			if !sleep(ctx, wait) {
				return
			}
			continue
		}

		slog.Info("chat: connected", "url", s.cfg.URL, "username", s.cfg.Username)
		bo.reset()
		s.setConn(conn)
		s.notify(ctx, Notice{State: StateConnected})

		s.forward(ctx, conn)
		s.setConn(nil)
		conn.Close() //nolint:errcheck

		if ctx.Err() != nil {
			return
		}

		wait := bo.next()
		slog.Warn("chat: connection lost, will reconnect",
			"url", s.cfg.URL, "err", conn.Err(), "retry_in", wait)
		s.notify(ctx, Notice{State: StateDisconnected, Err: conn.Err(), RetryIn: wait})
		if !sleep(ctx, wait) {
			return
		}
	}
}

// forward relays conn's events until the connection ends or ctx is done.
func (s *Session) forward(ctx context.Context, conn *Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.Events():
			if !ok {
				return
			}
			s.notify(ctx, Notice{Event: ev})
		}
	}
}

func (s *Session) notify(ctx context.Context, n Notice) {
	select {
	case s.notices <- n:
	case <-ctx.Done():
	}
}

func (s *Session) setConn(c *Conn) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
