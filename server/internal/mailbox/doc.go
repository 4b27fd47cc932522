// Package mailbox implements the per-connection outbound queue of the relay.
//
// A Mailbox is an unbounded FIFO of encoded events with many producers
// (every broadcast pushes into it) and exactly one consumer, the delivery
// loop started with Run. Push never blocks, so a slow or dead receiver can
// never stall a broadcast or the other recipients.
//
// Run writes each queued message with the supplied send function. A failed
// send is logged and the loop moves on to the next message; the loop only
// returns once Close has been called and everything queued before it has
// been handed to send.
//
// There is no backpressure. If a consumer stalls forever its queue grows
// without bound until the owning session ends and closes the mailbox.
package mailbox
