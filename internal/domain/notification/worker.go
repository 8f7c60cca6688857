package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"
	"github.com/hibiken/asynq"
)

// Worker processes dispatch jobs from the queue. It re-reads the record,
// picks the sender for the record's channel, and proposes the resulting
// transition to the store. Retry accounting lives on the record itself so
// a queue restart never loses retry history.
type Worker struct {
	store    NotificationStore
	enqueuer Enqueuer
	senders  map[Channel]Sender
	policies map[Channel]DeliveryPolicy
}

// NewWorker creates a new notification worker.
func NewWorker(store NotificationStore, enqueuer Enqueuer, policies map[Channel]DeliveryPolicy, senders ...Sender) *Worker {
	sm := make(map[Channel]Sender, len(senders))
	for _, s := range senders {
		sm[s.Channel()] = s
	}
	return &Worker{
		store:    store,
		enqueuer: enqueuer,
		senders:  sm,
		policies: policies,
	}
}

// Policy returns the delivery policy for a channel, falling back to defaults.
func (w *Worker) Policy(ch Channel) DeliveryPolicy {
	if p, ok := w.policies[ch]; ok {
		return p
	}
	return DefaultPolicy()
}

// ProcessTask handles one dispatch job. The returned error drives the queue:
// nil completes the job, a plain error re-enqueues it with backoff, and an
// error wrapping asynq.SkipRetry terminates it.
func (w *Worker) ProcessTask(ctx context.Context, notificationID string) error {
	start := time.Now()

	n, err := w.store.GetByID(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("fetching notification %s: %w", notificationID, err)
	}
	if n == nil {
		slog.Error("notification not found, dropping job", "id", notificationID)
		return fmt.Errorf("notification not found %s: %w", notificationID, asynq.SkipRetry)
	}

	// Only pending records are dispatchable. Anything else means the job is
	// a duplicate delivery or the record was cancelled while queued.
	if n.Status != StatusPending {
		slog.Info("skipping non-pending notification", "id", n.ID, "status", n.Status)
		return nil
	}

	// Scheduled-for-later records are re-deferred at dequeue time without
	// touching the retry counter.
	if n.ScheduledAt != nil && n.ScheduledAt.After(time.Now()) {
		slog.Info("deferring scheduled notification", "id", n.ID, "scheduled_at", n.ScheduledAt)
		if err := w.enqueuer.EnqueueSend(n); err != nil {
			return fmt.Errorf("re-deferring notification %s: %w", n.ID, err)
		}
		return nil
	}

	sender, ok := w.senders[n.Channel]
	if !ok {
		errMsg := "unsupported channel: " + string(n.Channel)
		w.forceFail(ctx, n, errMsg)
		return fmt.Errorf("%s: %w", errMsg, asynq.SkipRetry)
	}

	externalID, sendErr := sender.Send(ctx, n)
	if sendErr == nil {
		return w.recordSuccess(ctx, n, externalID, start)
	}

	if common.IsPermanentSendError(sendErr) {
		slog.Error("permanent delivery failure",
			"id", n.ID,
			"channel", n.Channel,
			"recipient", n.Recipient,
			"error", sendErr,
		)
		w.forceFail(ctx, n, sendErr.Error())
		return fmt.Errorf("permanent send failure for %s: %w", n.ID, asynq.SkipRetry)
	}

	return w.recordTransientFailure(ctx, n, sendErr)
}

// recordSuccess applies pending→sent with the provider id, stamping sent_at
// once and clearing any previous error message.
func (w *Worker) recordSuccess(ctx context.Context, n *Notification, externalID string, start time.Time) error {
	empty := ""
	_, err := w.store.ApplyTransition(ctx, n.ID, AllowedFrom(StatusSent), StatusSent, TransitionChange{
		ExternalID:   externalID,
		ErrorMessage: &empty,
	})
	if common.IsInvalidTransition(err) {
		// Lost the race to a cancel or a concurrent duplicate delivery.
		// The provider call already happened; the record stays authoritative.
		slog.Warn("sent transition lost race", "id", n.ID, "external_id", externalID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("recording sent status for %s: %w", n.ID, err)
	}

	slog.Info("notification sent",
		"id", n.ID,
		"channel", n.Channel,
		"recipient", n.Recipient,
		"external_id", externalID,
		"duration", time.Since(start),
	)
	return nil
}

// recordTransientFailure bumps the retry counter and either schedules
// another attempt (by returning the error to the queue) or force-fails the
// record once the channel's max attempts are used up.
func (w *Worker) recordTransientFailure(ctx context.Context, n *Notification, sendErr error) error {
	retries, err := w.store.IncrementRetry(ctx, n.ID)
	if err != nil {
		return fmt.Errorf("incrementing retry for %s: %w", n.ID, err)
	}

	policy := w.Policy(n.Channel)
	if retries >= policy.MaxAttempts {
		slog.Error("retries exhausted",
			"id", n.ID,
			"channel", n.Channel,
			"attempts", retries,
			"error", sendErr,
		)
		w.forceFail(ctx, n, sendErr.Error())
		return fmt.Errorf("retries exhausted for %s: %w", n.ID, asynq.SkipRetry)
	}

	slog.Warn("transient delivery failure, retry scheduled",
		"id", n.ID,
		"channel", n.Channel,
		"attempt", retries,
		"next_backoff", policy.Backoff(retries),
		"error", sendErr,
	)
	return fmt.Errorf("transient send failure for %s: %w", n.ID, sendErr)
}

// forceFail moves the record to failed with the failure reason. A lost race
// here is fine: whoever won already decided the record's fate.
func (w *Worker) forceFail(ctx context.Context, n *Notification, errMsg string) {
	_, err := w.store.ApplyTransition(ctx, n.ID, AllowedFrom(StatusFailed), StatusFailed, TransitionChange{
		ErrorMessage: &errMsg,
	})
	if err != nil && !common.IsInvalidTransition(err) {
		slog.Error("failed to record failure status", "id", n.ID, "error", err)
	}
}
