package registry

import (
	"fmt"

	"github.com/chatrelay/chatrelay/pkg/event"
)

// BroadcastUserList pushes an update-users event carrying the current names
// into every registered mailbox. The names and the recipients come from the
// same read-locked view. It returns the number of recipients.
func (r *Registry) BroadcastUserList() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, err := event.Encode(event.UpdateUsers{Usernames: r.namesLocked()})
	if err != nil {
		return 0, fmt.Errorf("registry: broadcast user list: %w", err)
	}
	return r.pushLocked(msg), nil
}

// BroadcastMessage pushes a send-message event into every registered
// mailbox, including the sender's. It returns the number of recipients.
func (r *Registry) BroadcastMessage(username, message string) (int, error) {
	msg, err := event.Encode(event.SendMessage{Username: username, Message: message})
	if err != nil {
		return 0, fmt.Errorf("registry: broadcast message: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pushLocked(msg), nil
}

// pushLocked enqueues msg into every mailbox. Callers hold r.mu.
func (r *Registry) pushLocked(msg []byte) int {
	n := 0
	for _, mb := range r.entries {
		if mb.Push(msg) {
			n++
		}
	}
	return n
}
