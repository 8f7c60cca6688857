package notification

import (
	"context"
	"time"
)

// TransitionChange carries the field updates applied together with a status
// transition. The store merges these atomically with the status change.
type TransitionChange struct {
	// ExternalID, when non-empty, records the provider-assigned message id.
	// A retried send that succeeds under a new provider id overwrites it;
	// the record keeps the latest successful id.
	ExternalID string

	// ErrorMessage, when non-nil, replaces the stored error message.
	// Pass a pointer to the empty string to clear it on success.
	ErrorMessage *string

	// At is the event time used to stamp the status timestamp column
	// (sent_at, delivered_at, opened_at, clicked_at). Zero means now.
	// Timestamps are set once and never overwritten.
	At time.Time
}

// NotificationStore defines the contract for persisting notification records.
// It is the single source of truth: senders and reconciliation propose
// transitions but only the store mutates persisted state, and transitions
// for the same id serialize on the store's conditional update.
type NotificationStore interface {
	// Create inserts a new notification record with status pending.
	Create(ctx context.Context, n *Notification) error

	// GetByID retrieves a notification by its id. Returns nil, nil if absent.
	GetByID(ctx context.Context, id string) (*Notification, error)

	// GetByExternalID retrieves a notification by its provider message id.
	// Returns nil, nil if absent.
	GetByExternalID(ctx context.Context, externalID string) (*Notification, error)

	// ApplyTransition atomically moves a record to the target status if its
	// current status is in from, merging change in the same operation.
	// Returns the updated record, an InvalidTransitionError when the current
	// status is outside from, or a NotFoundError when the id is unknown.
	ApplyTransition(ctx context.Context, id string, from []Status, to Status, change TransitionChange) (*Notification, error)

	// IncrementRetry atomically bumps retry_count and returns the new value.
	IncrementRetry(ctx context.Context, id string) (int, error)

	// List retrieves notifications with filtering, ordered by created_at
	// descending with id as tie-break so pagination is stable.
	List(ctx context.Context, filter ListFilter) ([]*Notification, int, error)

	// ListStale retrieves pending records not touched since olderThan.
	// Used by the reaper to rebuild queue state from the store.
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*Notification, error)

	// CountByStatus returns aggregate counts per status.
	CountByStatus(ctx context.Context) (map[Status]int, error)
}
