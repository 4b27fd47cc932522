// Package ws runs chat sessions over WebSocket connections.
//
// Hub.ServeHTTP upgrades a request on the relay path, takes the display name
// from the "username" query parameter (the configured default, "test", when
// the parameter is absent) and runs one Session until the connection ends.
// Hub.Serve runs the same lifecycle over any Transport, which is how the
// tests drive it without a network.
//
// A session moves through three states:
//
//	Connecting    mailbox created, delivery loop started, name registered,
//	              user list broadcast to everyone
//	Active        every inbound text frame is broadcast as a send-message
//	              event to all connected clients, the sender included;
//	              non-text frames are logged and discarded
//	Disconnected  entry released from the registry, user list broadcast,
//	              mailbox closed; the delivery loop drains it and then
//	              closes the transport
//
// Each session has two goroutines: the receive loop (the caller of Serve)
// and the delivery loop, the only writer to the connection. A receive error
// or close ends the session; there are no read or write deadlines and no
// keepalive pings.
//
// The upgrader accepts all origins. Apply origin checks at the reverse
// proxy if needed.
package ws
