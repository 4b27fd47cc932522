package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatrelay/chatrelay/pkg/event"
)

// fakeRelay speaks the relay protocol for a single user per connection:
// it pushes the user list on connect and echoes text frames back as
// send-message events.
type fakeRelay struct {
	mu      sync.Mutex
	queries []string
	conns   int

	// preamble frames are written before the user list.
	preamble []string
	// dropAfterList closes the connection right after the user list.
	dropAfterList bool
}

func (f *fakeRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.queries = append(f.queries, r.URL.RawQuery)
	f.conns++
	f.mu.Unlock()

	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	name := "test"
	if v, ok := r.URL.Query()["username"]; ok {
		name = v[0]
	}

	for _, p := range f.preamble {
		conn.WriteMessage(websocket.TextMessage, []byte(p)) //nolint:errcheck
	}
	list, _ := event.Encode(event.UpdateUsers{Usernames: []string{name}})
	conn.WriteMessage(websocket.TextMessage, list) //nolint:errcheck
	if f.dropAfterList {
		return
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		msg, _ := event.Encode(event.SendMessage{Username: name, Message: string(data)})
		conn.WriteMessage(websocket.TextMessage, msg) //nolint:errcheck
	}
}

func (f *fakeRelay) connCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns
}

func (f *fakeRelay) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

// --- helpers ---

func startRelay(t *testing.T, f *fakeRelay) string {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat"
}

func dial(t *testing.T, url, username string) *Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, username)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() }) //nolint:errcheck
	return c
}

func nextEvent(t *testing.T, c *Conn) event.Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		if !ok {
			t.Fatalf("events closed: %v", c.Err())
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return nil
}

// --- tests ---

func TestDial_ReceivesUserList(t *testing.T) {
	f := &fakeRelay{}
	c := dial(t, startRelay(t, f), "alice")

	ev := nextEvent(t, c)
	uu, ok := ev.(event.UpdateUsers)
	if !ok {
		t.Fatalf("got %T, want event.UpdateUsers", ev)
	}
	if len(uu.Usernames) != 1 || uu.Usernames[0] != "alice" {
		t.Errorf("usernames: got %v, want [alice]", uu.Usernames)
	}
	if got := f.lastQuery(); got != "username=alice" {
		t.Errorf("query: got %q, want username=alice", got)
	}
}

func TestDial_EmptyUsernameOmitsParam(t *testing.T) {
	f := &fakeRelay{}
	c := dial(t, startRelay(t, f), "")

	uu, ok := nextEvent(t, c).(event.UpdateUsers)
	if !ok || len(uu.Usernames) != 1 || uu.Usernames[0] != "test" {
		t.Errorf("got %+v, want server default name", uu)
	}
	if got := f.lastQuery(); got != "" {
		t.Errorf("query: got %q, want empty", got)
	}
}

func TestDial_EscapesUsername(t *testing.T) {
	f := &fakeRelay{}
	c := dial(t, startRelay(t, f), "a b&c")

	uu := nextEvent(t, c).(event.UpdateUsers)
	if uu.Usernames[0] != "a b&c" {
		t.Errorf("username: got %q, want %q", uu.Usernames[0], "a b&c")
	}
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, "ws://127.0.0.1:1/chat", "alice"); err == nil {
		t.Fatal("expected dial error, got nil")
	}
}

func TestConn_SendIsEchoed(t *testing.T) {
	c := dial(t, startRelay(t, &fakeRelay{}), "bob")
	nextEvent(t, c) // user list

	if err := c.Send("hi there"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sm, ok := nextEvent(t, c).(event.SendMessage)
	if !ok {
		t.Fatal("expected event.SendMessage")
	}
	if sm.Username != "bob" || sm.Message != "hi there" {
		t.Errorf("got %+v, want bob/hi there", sm)
	}
}

func TestConn_SkipsUndecodableFrames(t *testing.T) {
	f := &fakeRelay{preamble: []string{"not json", `{"type":"bogus"}`}}
	c := dial(t, startRelay(t, f), "carol")

	if _, ok := nextEvent(t, c).(event.UpdateUsers); !ok {
		t.Error("first decoded event should be the user list")
	}
}

func TestConn_EventsClosedWhenServerCloses(t *testing.T) {
	f := &fakeRelay{dropAfterList: true}
	c := dial(t, startRelay(t, f), "dave")
	nextEvent(t, c)

	select {
	case _, ok := <-c.Events():
		if ok {
			t.Fatal("expected events channel to close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after server close")
	}
	if c.Err() == nil {
		t.Error("Err: got nil, want read error")
	}
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	c := dial(t, startRelay(t, &fakeRelay{}), "erin")
	c.Close() //nolint:errcheck
	c.Close() //nolint:errcheck
}
