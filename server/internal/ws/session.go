package ws

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chatrelay/chatrelay/server/internal/mailbox"
	"github.com/chatrelay/chatrelay/server/internal/metrics"
)

// Transport is a duplex message stream. *websocket.Conn satisfies it.
// ReadMessage is only called from the receive loop and WriteMessage only
// from the delivery loop.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// State is a session's lifecycle state.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Session is one client connection from handshake to termination.
type Session struct {
	ID        string
	Username  string
	StartedAt time.Time

	state     atomic.Int32
	transport Transport
	mailbox   *mailbox.Mailbox
	log       *slog.Logger
	delivered chan struct{}
}

func newSession(t Transport, username string) *Session {
	id := uuid.NewString()
	log := slog.Default().With("session_id", id, "username", username)
	return &Session{
		ID:        id,
		Username:  username,
		StartedAt: time.Now(),
		transport: t,
		mailbox:   mailbox.New(log),
		log:       log,
		delivered: make(chan struct{}),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.log.Debug("ws: session state", "state", st.String())
}

// Done is closed once the delivery loop has drained the mailbox and closed
// the transport.
func (s *Session) Done() <-chan struct{} {
	return s.delivered
}

// deliver is the session's delivery loop. It is the only writer to the
// transport and closes it once the mailbox is closed and drained.
func (s *Session) deliver(m *metrics.Metrics) {
	defer close(s.delivered)
	defer s.transport.Close()

	s.mailbox.Run(func(msg []byte) error {
		if err := s.transport.WriteMessage(websocket.TextMessage, msg); err != nil {
			m.SendFailed()
			return fmt.Errorf("ws: write: %w", err)
		}
		return nil
	})

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	s.transport.WriteMessage(websocket.CloseMessage, closeMsg) //nolint:errcheck
}
