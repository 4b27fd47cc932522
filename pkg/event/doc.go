// Package event defines the wire events exchanged between the relay server
// and its clients, and the codec that converts them to and from JSON text.
//
// Exactly two events exist, distinguished by the "event" field:
//
//	{"event":"update-users","usernames":["alice","bob"]}
//	{"event":"send-message","username":"alice","message":"hi"}
//
// Event is a sealed sum type: UpdateUsers and SendMessage are its only
// implementations. Encode is deterministic and Decode(Encode(e)) returns a
// value equal to e.
//
// Decode checks the payload against the wire JSON schema before building
// the event. Anything that is not valid for one of the two variants (bad
// JSON, a non-object, an unknown discriminator, a missing or mistyped field)
// yields a *DecodeError, which also matches ErrDecode via errors.Is. Callers
// treat a DecodeError as "skip this payload", never as fatal. Field values
// themselves (empty names, empty messages) are not validated.
package event
