package notification

import "context"

// Sender defines the contract for a notification delivery channel.
// Implementations live in infra/ (Resend for email, FCM for push, and so on).
// A sender never mutates the notification record; it only reports an outcome
// to the worker, which applies the transition through the store. Senders must
// tolerate being called twice for the same notification: delivery is
// at-least-once, duplicate record mutation is prevented by the store.
type Sender interface {
	// Send delivers the notification and returns the provider's message id.
	// Failures are classified via common.SendError: permanent failures skip
	// remaining retries, everything else is retried with backoff.
	Send(ctx context.Context, n *Notification) (string, error)

	// Channel returns which delivery channel this sender handles.
	Channel() Channel
}

// Enqueuer defines the contract for enqueuing notification dispatch jobs.
// This keeps the service and reaper decoupled from the queue implementation.
// Implementations honor ScheduledAt by deferring the job's processing time.
type Enqueuer interface {
	EnqueueSend(n *Notification) error
}

// RecipientRateLimiter defines the contract for per-recipient rate limiting.
type RecipientRateLimiter interface {
	// Allow checks whether a notification can be sent to the given recipient.
	Allow(ctx context.Context, recipient string) (bool, error)
}
