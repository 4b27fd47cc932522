package registry

import (
	"sort"
	"sync"

	"github.com/chatrelay/chatrelay/server/internal/mailbox"
)

// Registry is a thread-safe map of display name to outbound mailbox.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*mailbox.Mailbox
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*mailbox.Mailbox)}
}

// Register inserts mb under name, replacing any existing entry.
func (r *Registry) Register(name string, mb *mailbox.Mailbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = mb
}

// Unregister removes the entry for name. It is a no-op if name is absent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Release removes the entry for name only if it still refers to mb. It
// reports whether an entry was removed. A session whose registration was
// overwritten by a later one with the same name releases nothing.
func (r *Registry) Release(name string, mb *mailbox.Mailbox) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[name]; !ok || cur != mb {
		return false
	}
	delete(r.entries, name)
	return true
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// ForEach calls visit for every registered mailbox while holding the read
// lock. visit must not call back into the Registry's write methods.
func (r *Registry) ForEach(visit func(name string, mb *mailbox.Mailbox)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, mb := range r.entries {
		visit(name, mb)
	}
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
