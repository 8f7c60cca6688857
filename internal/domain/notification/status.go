package notification

// Status represents the delivery lifecycle state of a notification.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusOpened    Status = "opened"
	StatusClicked   Status = "clicked"
	StatusBounced   Status = "bounced"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// allowedFrom maps each target status to the set of statuses a record may
// transition from. Progress is forward-only: nothing moves a record back
// toward pending, and terminal statuses have no outgoing edges.
var allowedFrom = map[Status][]Status{
	StatusSent:      {StatusPending},
	StatusDelivered: {StatusSent},
	StatusOpened:    {StatusSent, StatusDelivered},
	StatusClicked:   {StatusSent, StatusDelivered, StatusOpened},
	StatusBounced:   {StatusPending, StatusSent, StatusDelivered},
	StatusFailed:    {StatusPending},
	StatusCancelled: {StatusPending},
}

// AllowedFrom returns the set of statuses from which a transition to the
// given target status is valid.
func AllowedFrom(to Status) []Status {
	return allowedFrom[to]
}

// CanTransition reports whether a transition from one status to another is
// allowed by the lifecycle state machine.
func CanTransition(from, to Status) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing automatic transitions.
func IsTerminal(s Status) bool {
	switch s {
	case StatusFailed, StatusCancelled, StatusBounced, StatusClicked:
		return true
	}
	return false
}

// IsValidStatus checks whether a status value is recognized.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusOpened,
		StatusClicked, StatusBounced, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// EventKind is a provider delivery event reported via webhook.
type EventKind string

const (
	EventDelivered EventKind = "delivered"
	EventOpened    EventKind = "opened"
	EventClicked   EventKind = "clicked"
	EventBounced   EventKind = "bounced"
)

// eventStatus maps webhook event kinds to their target statuses.
var eventStatus = map[EventKind]Status{
	EventDelivered: StatusDelivered,
	EventOpened:    StatusOpened,
	EventClicked:   StatusClicked,
	EventBounced:   StatusBounced,
}

// StatusForEvent returns the target status for a webhook event kind.
func StatusForEvent(kind EventKind) (Status, bool) {
	s, ok := eventStatus[kind]
	return s, ok
}
