package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestStartAndGet(t *testing.T) {
	st := New(5 * time.Minute)
	st.Start("s-1", "alice", "127.0.0.1:5000")

	e, ok := st.Get("s-1")
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if e.Username != "alice" || e.Remote != "127.0.0.1:5000" {
		t.Errorf("entry: got %+v", e)
	}
	if !e.Active() {
		t.Error("new session should be active")
	}
}

func TestGet_Missing(t *testing.T) {
	st := New(5 * time.Minute)
	if _, ok := st.Get("unknown"); ok {
		t.Fatal("Get on empty store: expected false, got true")
	}
}

func TestEnd_MarksEnded(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)
	st.now = fixedClock(base)
	st.Start("s-1", "alice", "")

	st.now = fixedClock(base.Add(time.Minute))
	st.End("s-1")
	st.End("s-1") // second End keeps the first timestamp
	st.End("unknown")

	e, _ := st.Get("s-1")
	if e.Active() {
		t.Fatal("session should have ended")
	}
	if !e.EndedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("EndedAt: got %v, want %v", e.EndedAt, base.Add(time.Minute))
	}
}

func TestList_ExcludesExpired(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-20 * time.Minute))
	st.Start("old", "alice", "")
	st.Start("long-lived", "bob", "")
	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.End("old")

	st.now = fixedClock(base.Add(-1 * time.Minute))
	st.Start("recent", "carol", "")
	st.End("recent")

	st.now = fixedClock(base)
	entries := st.List()

	if len(entries) != 2 {
		t.Fatalf("List: got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "long-lived" || entries[1].ID != "recent" {
		t.Errorf("List order: got %s, %s; want long-lived, recent", entries[0].ID, entries[1].ID)
	}
}

func TestCount_IncludesExpired(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Start("old", "alice", "")
	st.End("old")

	st.now = fixedClock(base)
	st.Start("new", "bob", "")

	if n := st.Count(); n != 2 {
		t.Errorf("Count: got %d, want 2", n)
	}
}

func TestEvict_RemovesExpiredOnly(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Start("old1", "a", "")
	st.Start("old2", "b", "")
	st.Start("active", "c", "")
	st.End("old1")
	st.End("old2")

	removed := st.Evict(base)
	if removed != 2 {
		t.Errorf("Evict: removed %d, want 2", removed)
	}
	if st.Count() != 1 {
		t.Errorf("Count after evict: got %d, want 1", st.Count())
	}
	if _, ok := st.Get("active"); !ok {
		t.Error("active session must never be evicted")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := New(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	st := New(5 * time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("s-%d", i)
		wg.Add(3)
		go func() {
			defer wg.Done()
			st.Start(id, "u", "")
			st.End(id)
		}()
		go func() {
			defer wg.Done()
			st.List()
		}()
		go func() {
			defer wg.Done()
			st.Evict(time.Now())
		}()
	}
	wg.Wait()
}
