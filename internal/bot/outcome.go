package bot

import (
	"github.com/memohai/kitchensink/internal/messaging"
	"github.com/memohai/kitchensink/internal/webhook"
)

// Action names what the router did with an event.
type Action string

const (
	// ActionReply means a reply call was accepted by the platform.
	ActionReply Action = "reply"
	// ActionLog means the event was only logged.
	ActionLog Action = "log"
	// ActionIgnored means the event was a verification probe and was skipped.
	ActionIgnored Action = "ignored"
)

// Outcome is the per-event result reported back to the caller.
type Outcome struct {
	Event    webhook.EventKind         `json:"event"`
	Action   Action                    `json:"action"`
	Delivery *messaging.DeliveryResult `json:"delivery,omitempty"`
}

func replied(kind webhook.EventKind, result messaging.DeliveryResult) Outcome {
	return Outcome{Event: kind, Action: ActionReply, Delivery: &result}
}

func logged(kind webhook.EventKind) Outcome {
	return Outcome{Event: kind, Action: ActionLog}
}
