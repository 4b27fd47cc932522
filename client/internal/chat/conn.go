package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/chatrelay/chatrelay/pkg/event"
)

const eventBuffer = 64

// Conn is a single connection to the relay.
type Conn struct {
	ws     *websocket.Conn
	events chan event.Event

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}

	// err is the read error that ended the connection. It is written before
	// events is closed.
	err error
}

// Dial connects to the relay at rawURL. A non-empty username is sent as the
// username query parameter; an empty one leaves the choice to the server.
func Dial(ctx context.Context, rawURL, username string) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("chat: parse url %q: %w", rawURL, err)
	}
	if username != "" {
		q := u.Query()
		q.Set("username", username)
		u.RawQuery = q.Encode()
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("chat: dial %s: %w", u.Redacted(), err)
	}

	c := &Conn{
		ws:     ws,
		events: make(chan event.Event, eventBuffer),
		closed: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events returns the stream of events relayed by the server. The channel is
// closed once the connection ends.
func (c *Conn) Events() <-chan event.Event {
	return c.events
}

// Err reports why the connection ended. It is only meaningful after Events
// has been closed.
func (c *Conn) Err() error {
	return c.err
}

// Send writes text as one WebSocket text frame.
func (c *Conn) Send(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("chat: send: %w", err)
	}
	return nil
}

// Close sends a close frame and tears down the connection. It is safe to
// call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.ws.WriteMessage(websocket.CloseMessage, msg) //nolint:errcheck
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readLoop() {
	defer close(c.events)

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			c.err = err
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		ev, err := event.Decode(data)
		if err != nil {
			slog.Warn("chat: undecodable frame skipped", "bytes", len(data), "err", err)
			continue
		}

		select {
		case c.events <- ev:
		case <-c.closed:
			return
		}
	}
}
