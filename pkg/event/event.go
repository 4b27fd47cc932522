package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"
)

// Kind is the value of the "event" discriminator field.
type Kind string

const (
	KindUpdateUsers Kind = "update-users"
	KindSendMessage Kind = "send-message"
)

// Event is one wire event. The only implementations are UpdateUsers and
// SendMessage.
type Event interface {
	Kind() Kind
	isEvent()
}

// UpdateUsers carries the full set of currently connected names. A nil and
// an empty Usernames are equivalent: both encode as [] and decode as an
// empty, non-nil slice.
type UpdateUsers struct {
	Usernames []string
}

// Kind implements Event.
func (UpdateUsers) Kind() Kind { return KindUpdateUsers }
func (UpdateUsers) isEvent()   {}

// SendMessage carries one chat message and the name of its sender.
type SendMessage struct {
	Username string
	Message  string
}

// Kind implements Event.
func (SendMessage) Kind() Kind { return KindSendMessage }
func (SendMessage) isEvent()   {}

// ErrDecode is matched by every *DecodeError.
var ErrDecode = errors.New("event: decode failed")

// DecodeError reports a payload that is not a valid event.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event: decode: %s: %v", e.Reason, e.Err)
	}
	return "event: decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDecode.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// --- wire shapes ------------------------------------------------------------

type updateUsersWire struct {
	Event     Kind     `json:"event"`
	Usernames []string `json:"usernames"`
}

type sendMessageWire struct {
	Event    Kind   `json:"event"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Encode returns the JSON text form of e.
func Encode(e Event) ([]byte, error) {
	switch v := e.(type) {
	case UpdateUsers:
		names := v.Usernames
		if names == nil {
			names = []string{}
		}
		return marshal(updateUsersWire{Event: KindUpdateUsers, Usernames: names})
	case SendMessage:
		return marshal(sendMessageWire{Event: KindSendMessage, Username: v.Username, Message: v.Message})
	default:
		return nil, fmt.Errorf("event: encode: unsupported type %T", e)
	}
}

// marshal encodes v without HTML escaping so that "<", ">" and "&" inside
// messages reach clients verbatim.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("event: encode: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses one event from its JSON text form.
func Decode(data []byte) (Event, error) {
	if !utf8.Valid(data) {
		return nil, &DecodeError{Reason: "payload is not UTF-8 text"}
	}

	res, err := wireSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &DecodeError{Reason: "malformed JSON", Err: err}
	}
	if !res.Valid() {
		return nil, &DecodeError{Reason: describe(res.Errors())}
	}

	var head struct {
		Event Kind `json:"event"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &DecodeError{Reason: "malformed JSON", Err: err}
	}

	switch head.Event {
	case KindUpdateUsers:
		var w updateUsersWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &DecodeError{Reason: "update-users", Err: err}
		}
		return UpdateUsers{Usernames: w.Usernames}, nil
	case KindSendMessage:
		var w sendMessageWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &DecodeError{Reason: "send-message", Err: err}
		}
		return SendMessage{Username: w.Username, Message: w.Message}, nil
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown event %q", head.Event)}
	}
}

func describe(errs []gojsonschema.ResultError) string {
	if len(errs) == 0 {
		return "schema mismatch"
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}
