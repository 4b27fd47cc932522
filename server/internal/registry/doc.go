// Package registry holds the relay's directory of connected clients and the
// broadcast engine that fans events out to them.
//
// Registry maps a display name to that connection's outbound mailbox. It is
// the single source of truth for "who is connected". Names are not unique:
// a second Register under the same name replaces the first entry (last
// write wins), and the replaced mailbox stops receiving broadcasts.
//
// All reads (Names, ForEach, broadcasts) share the read side of one
// sync.RWMutex; Register, Unregister and Release take the write side, so a
// reader never sees a half-applied change.
//
// BroadcastUserList and BroadcastMessage encode one event and push it into
// every registered mailbox, the sender's own included, under a single read
// lock. Pushing never blocks and never reports per-recipient failures.
package registry
