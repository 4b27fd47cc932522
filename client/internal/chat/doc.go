// Package chat is the client side of the relay protocol.
//
// Dial opens one WebSocket connection. Conn.Events() yields decoded
// event.Event values (undecodable frames are logged and skipped) and is
// closed when the connection ends; Conn.Send writes one text frame.
//
// Session wraps Dial in a reconnect loop with truncated exponential backoff
// (±25% jitter). Every reconnect is a fresh server session, so the relay
// pushes a new user list each time. Consumers read Session.Notices(), which
// carries both relayed events and connection state changes.
//
// The dialFn field is injectable for testing.
package chat
