// Package tui renders a chat session.
//
// Model is a bubbletea program: a scrolling message viewport, a sidebar with
// the connected users, a status line and a text input. RunLines is the
// fallback used when stdin is not a terminal; it sends each input line and
// prints relayed events as plain text.
//
// Both consume a Conversation, which chat.Session satisfies.
package tui
