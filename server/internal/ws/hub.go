package ws

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatrelay/chatrelay/pkg/event"
	"github.com/chatrelay/chatrelay/server/internal/metrics"
	"github.com/chatrelay/chatrelay/server/internal/registry"
	"github.com/chatrelay/chatrelay/server/internal/store"
)

const (
	// DefaultUsername is used when a client connects without a username
	// query parameter.
	DefaultUsername = "test"

	// UsernameParam is the query parameter carrying the display name.
	UsernameParam = "username"

	tracerName = "github.com/chatrelay/chatrelay/server/internal/ws"
)

// Reasons reported for discarded inbound frames.
const (
	DropNonText     = "non_text"
	DropInvalidUTF8 = "invalid_utf8"
)

// ErrTransportClosed is returned from Transport.ReadMessage by transports
// without a WebSocket close handshake to signal a clean close.
var ErrTransportClosed = errors.New("ws: transport closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins — apply origin checks at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub runs chat sessions against a shared registry.
type Hub struct {
	reg             *registry.Registry
	defaultUsername string
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	sessions        *store.Store
}

// Option configures a Hub.
type Option func(*Hub)

// WithDefaultUsername sets the name used when the username parameter is
// absent.
func WithDefaultUsername(name string) Option {
	return func(h *Hub) { h.defaultUsername = name }
}

// WithMetrics records session and broadcast metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithStore records every session's start and end in st.
func WithStore(st *store.Store) Option {
	return func(h *Hub) { h.sessions = st }
}

// WithTracer overrides the tracer taken from the global OpenTelemetry
// provider.
func WithTracer(t trace.Tracer) Option {
	return func(h *Hub) { h.tracer = t }
}

// New creates a Hub whose sessions register in reg.
func New(reg *registry.Registry, opts ...Option) *Hub {
	h := &Hub{
		reg:             reg,
		defaultUsername: DefaultUsername,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.tracer == nil {
		h.tracer = otel.Tracer(tracerName)
	}
	return h
}

// Registry returns the registry the hub's sessions register in.
func (h *Hub) Registry() *registry.Registry {
	return h.reg
}

// ServeHTTP upgrades the request to WebSocket and runs a session for it.
// It blocks until the session's receive loop ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	username := h.defaultUsername
	if v, ok := r.URL.Query()[UsernameParam]; ok && len(v) > 0 {
		username = v[0]
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		slog.Warn("ws: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	h.Serve(r.Context(), conn, username)
}

// Serve runs one session over t under the given name and blocks until its
// receive loop ends. The returned Session's Done channel is closed once the
// delivery loop has drained and closed t.
func (h *Hub) Serve(ctx context.Context, t Transport, username string) *Session {
	s := newSession(t, username)

	_, span := h.tracer.Start(ctx, "chatrelay.session",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("chatrelay.session_id", s.ID),
			attribute.String("chatrelay.username", username),
		),
	)
	defer span.End()

	h.connect(s)
	err := h.receive(s)
	h.disconnect(s, err)

	if err != nil && !isNormalClose(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return s
}

// --- lifecycle --------------------------------------------------------------

func (h *Hub) connect(s *Session) {
	s.setState(StateConnecting)
	go s.deliver(h.metrics)

	h.reg.Register(s.Username, s.mailbox)
	h.metrics.SessionStarted()
	if h.sessions != nil {
		h.sessions.Start(s.ID, s.Username, remoteAddr(s.transport))
	}
	s.log.Info("ws: user connected")

	h.broadcastUserList(s.log)
	s.setState(StateActive)
}

// receive reads inbound frames until the transport fails or closes.
func (h *Hub) receive(s *Session) error {
	for {
		mt, data, err := s.transport.ReadMessage()
		if err != nil {
			return err
		}

		if mt != websocket.TextMessage {
			s.log.Info("ws: non-text message discarded", "type", mt, "bytes", len(data))
			h.metrics.FrameDropped(DropNonText)
			continue
		}
		if !utf8.Valid(data) {
			s.log.Info("ws: invalid UTF-8 text discarded", "bytes", len(data))
			h.metrics.FrameDropped(DropInvalidUTF8)
			continue
		}

		n, err := h.reg.BroadcastMessage(s.Username, string(data))
		if err != nil {
			s.log.Error("ws: broadcast message failed", "err", err)
			continue
		}
		h.metrics.Broadcast(string(event.KindSendMessage), n)
	}
}

func (h *Hub) disconnect(s *Session, cause error) {
	if cause == nil || isNormalClose(cause) {
		s.log.Info("ws: user disconnected")
	} else {
		s.log.Warn("ws: receive failed, ending session", "err", cause)
	}

	if !h.reg.Release(s.Username, s.mailbox) {
		s.log.Info("ws: registration already superseded by a newer session")
	}
	h.broadcastUserList(s.log)

	s.mailbox.Close()
	s.setState(StateDisconnected)
	h.metrics.SessionEnded(time.Since(s.StartedAt))
	if h.sessions != nil {
		h.sessions.End(s.ID)
	}
}

// remoteAddr returns the peer address when the transport exposes one.
func remoteAddr(t Transport) string {
	if ra, ok := t.(interface{ RemoteAddr() net.Addr }); ok {
		if addr := ra.RemoteAddr(); addr != nil {
			return addr.String()
		}
	}
	return ""
}

func (h *Hub) broadcastUserList(log *slog.Logger) {
	n, err := h.reg.BroadcastUserList()
	if err != nil {
		log.Error("ws: broadcast user list failed", "err", err)
		return
	}
	log.Debug("ws: user list broadcast", "recipients", n)
	h.metrics.Broadcast(string(event.KindUpdateUsers), n)
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) || errors.Is(err, ErrTransportClosed)
}
