package mailbox

import (
	"log/slog"
	"sync"
)

// Mailbox is an unbounded, ordered queue of outbound messages.
type Mailbox struct {
	log *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool
}

// New creates an open, empty Mailbox. Delivery failures are logged to log,
// or to slog.Default() when log is nil.
func New(log *slog.Logger) *Mailbox {
	if log == nil {
		log = slog.Default()
	}
	m := &Mailbox{log: log}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Push appends msg to the queue and wakes the delivery loop. It never
// blocks. It returns false, discarding msg, if the mailbox is closed.
func (m *Mailbox) Push(msg []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.queue = append(m.queue, msg)
	m.cond.Signal()
	return true
}

// Close stops accepting new messages. Messages already queued are still
// delivered by Run. Close is idempotent.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cond.Broadcast()
}

// Len returns the number of messages waiting for delivery.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Run is the delivery loop. It passes every queued message to send in FIFO
// order, suspending while the queue is empty. Send errors are logged and
// do not stop the loop. Run returns once the mailbox is closed and drained.
func (m *Mailbox) Run(send func([]byte) error) {
	for {
		msg, ok := m.next()
		if !ok {
			return
		}
		if err := send(msg); err != nil {
			m.log.Warn("mailbox: send failed", "err", err)
		}
	}
}

// next blocks until a message is available or the mailbox is closed and
// empty, in which case ok is false.
func (m *Mailbox) next() (msg []byte, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.queue) == 0 {
		return nil, false
	}
	msg = m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return msg, true
}
