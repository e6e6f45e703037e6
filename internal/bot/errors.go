package bot

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownEventKind is returned for events the router has no handler for.
	ErrUnknownEventKind = errors.New("unknown event kind")
	// ErrUnknownMessageKind is returned for message payloads the router has no handler for.
	ErrUnknownMessageKind = errors.New("unknown message kind")
)

// UnknownKindError carries the raw payload of an unroutable event or message.
type UnknownKindError struct {
	// Kind is ErrUnknownEventKind or ErrUnknownMessageKind.
	Kind error
	Type string
	Raw  json.RawMessage
}

func (e *UnknownKindError) Error() string {
	if len(e.Raw) == 0 {
		return fmt.Sprintf("%v: %q", e.Kind, e.Type)
	}
	return fmt.Sprintf("%v: %q: %s", e.Kind, e.Type, e.Raw)
}

func (e *UnknownKindError) Unwrap() error { return e.Kind }
