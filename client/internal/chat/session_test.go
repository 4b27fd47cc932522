package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatrelay/chatrelay/client/internal/config"
	"github.com/chatrelay/chatrelay/pkg/event"
)

func chatCfg(url, username string) config.ChatConfig {
	return config.ChatConfig{
		URL:      url,
		Username: username,
		Reconnect: config.ReconnectConfig{
			Initial: 10 * time.Millisecond,
			Max:     50 * time.Millisecond,
		},
	}
}

func nextNotice(t *testing.T, s *Session) Notice {
	t.Helper()
	select {
	case n, ok := <-s.Notices():
		if !ok {
			t.Fatal("notices closed")
		}
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notice")
	}
	return Notice{}
}

// waitFor skips notices until one matches.
func waitFor(t *testing.T, s *Session, match func(Notice) bool) Notice {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case n, ok := <-s.Notices():
			if !ok {
				t.Fatal("notices closed")
			}
			if match(n) {
				return n
			}
		case <-deadline:
			t.Fatal("timeout waiting for matching notice")
		}
	}
}

func isState(st State) func(Notice) bool {
	return func(n Notice) bool { return n.Event == nil && n.State == st }
}

func TestSession_ConnectsAndRelays(t *testing.T) {
	url := startRelay(t, &fakeRelay{})
	s := NewSession(chatCfg(url, "alice"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	if n := nextNotice(t, s); n.State != StateConnecting {
		t.Errorf("first notice: got %v, want connecting", n.State)
	}
	if n := nextNotice(t, s); n.State != StateConnected {
		t.Errorf("second notice: got %v, want connected", n.State)
	}
	n := nextNotice(t, s)
	if _, ok := n.Event.(event.UpdateUsers); !ok {
		t.Fatalf("got %T, want event.UpdateUsers", n.Event)
	}

	if err := s.Send("hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	n = waitFor(t, s, func(n Notice) bool { return n.Event != nil })
	sm, ok := n.Event.(event.SendMessage)
	if !ok || sm.Message != "hello" || sm.Username != "alice" {
		t.Errorf("got %+v, want alice/hello", n.Event)
	}
}

func TestSession_ReconnectsAfterDrop(t *testing.T) {
	f := &fakeRelay{dropAfterList: true}
	s := NewSession(chatCfg(startRelay(t, f), "bob"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitFor(t, s, isState(StateConnected))
	n := waitFor(t, s, isState(StateDisconnected))
	if n.RetryIn <= 0 {
		t.Errorf("RetryIn: got %v, want > 0", n.RetryIn)
	}
	waitFor(t, s, isState(StateConnected))

	if got := f.connCount(); got < 2 {
		t.Errorf("server saw %d connections, want >= 2", got)
	}
}

func TestSession_RetriesDialFailures(t *testing.T) {
	s := NewSession(chatCfg("ws://unused/chat", "carol"))
	dialErr := errors.New("refused")
	s.dialFn = func(ctx context.Context, _, _ string) (*Conn, error) {
		return nil, dialErr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	for i := 0; i < 3; i++ {
		n := waitFor(t, s, isState(StateDisconnected))
		if !errors.Is(n.Err, dialErr) {
			t.Errorf("Err: got %v, want %v", n.Err, dialErr)
		}
	}
}

func TestSession_SendWhileDisconnected(t *testing.T) {
	s := NewSession(chatCfg("ws://unused/chat", "dave"))
	if err := s.Send("hi"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send: got %v, want ErrNotConnected", err)
	}
}

func TestSession_GracefulShutdown(t *testing.T) {
	s := NewSession(chatCfg(startRelay(t, &fakeRelay{}), "erin"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	waitFor(t, s, isState(StateConnected))
	cancel()

	// Drain so Run is never blocked on a full notices channel.
	go func() {
		for range s.Notices() {
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestBackoff_ResetsAndCaps(t *testing.T) {
	b := newBackoff(time.Second, 8*time.Second)
	if first := b.next(); first > 2*time.Second {
		t.Errorf("first backoff too large: %v", first)
	}
	for i := 0; i < 20; i++ {
		if d := b.next(); d > 10*time.Second {
			t.Errorf("backoff[%d] = %v, exceeds max with jitter", i, d)
		}
	}
	b.reset()
	if after := b.next(); after > 2*time.Second {
		t.Errorf("backoff after reset too large: %v", after)
	}
}
