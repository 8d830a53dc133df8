package domain

// EventKind identifies the mutation that produced a domain event.
type EventKind string

const (
	EventKindCreated    EventKind = "created"
	EventKindUpdated    EventKind = "updated"
	EventKindReassigned EventKind = "reassigned"
	EventKindDeleted    EventKind = "deleted"
)

// Event is a transient notification about a completed task mutation,
// addressed to a single recipient. Events exist only for the duration of the
// broadcast: there is no persistence and no replay log. Clients reconcile
// missed events by refetching on reconnect.
type Event struct {
	RecipientID string
	Kind        EventKind
	Message     string
}
