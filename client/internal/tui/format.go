package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/chatrelay/chatrelay/client/internal/chat"
	"github.com/chatrelay/chatrelay/pkg/event"
)

// Conversation is the live side of a chat: a stream of notices and a way to
// send text.
type Conversation interface {
	Notices() <-chan chat.Notice
	Send(text string) error
}

// formatMessage renders a relayed chat message.
func formatMessage(m event.SendMessage) string {
	return m.Username + ": " + m.Message
}

// formatUsers renders a user list announcement.
func formatUsers(u event.UpdateUsers) string {
	if len(u.Usernames) == 0 {
		return "* nobody online"
	}
	return "* online: " + strings.Join(u.Usernames, ", ")
}

// formatState renders a connection state change.
func formatState(n chat.Notice) string {
	switch n.State {
	case chat.StateConnecting:
		return "* connecting"
	case chat.StateConnected:
		return "* connected"
	case chat.StateDisconnected:
		if n.Err != nil {
			return fmt.Sprintf("* disconnected: %v (retrying in %s)", n.Err, n.RetryIn.Round(time.Millisecond))
		}
		return fmt.Sprintf("* disconnected (retrying in %s)", n.RetryIn.Round(time.Millisecond))
	default:
		return "* " + n.State.String()
	}
}
