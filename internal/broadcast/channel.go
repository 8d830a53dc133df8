package broadcast

import (
	"fmt"

	"github.com/mrsawy/task-management/internal/domain"
)

// ChannelName derives the recipient-scoped channel identifier. It is a pure
// function of the recipient identity and never of client-supplied input, so
// cross-user leakage is structurally impossible.
func ChannelName(recipientID string) string {
	return "private-tasks." + recipientID
}

// EventName builds the wire event name, unique per (recipient, mutation
// kind), so a handler attached to a shared channel namespace can still tell
// recipients apart.
func EventName(kind domain.EventKind, recipientID string) string {
	return fmt.Sprintf("tasks.%s.%s", kind, recipientID)
}

// Body carries the advisory, human-readable part of an event. It is meant
// for a toast or notification line; clients must never treat it as
// authoritative task state.
type Body struct {
	Message string `json:"message"`
}

// Envelope is the transport-agnostic wire shape of a broadcast event.
type Envelope struct {
	RecipientChannel string `json:"recipientChannel"`
	EventName        string `json:"eventName"`
	Body             Body   `json:"body"`
}

// NewEnvelope wraps a domain event for the wire.
func NewEnvelope(event domain.Event) Envelope {
	return Envelope{
		RecipientChannel: ChannelName(event.RecipientID),
		EventName:        EventName(event.Kind, event.RecipientID),
		Body:             Body{Message: event.Message},
	}
}
