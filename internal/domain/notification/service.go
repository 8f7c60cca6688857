package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"
	"github.com/google/uuid"
)

// Service orchestrates the notification lifecycle outside the worker:
// creation, queries, cancellation, stats, and webhook reconciliation.
type Service struct {
	store       NotificationStore
	enqueuer    Enqueuer
	rateLimiter RecipientRateLimiter
}

// NewService creates a new notification service. rateLimiter may be nil.
func NewService(store NotificationStore, enqueuer Enqueuer, rateLimiter RecipientRateLimiter) *Service {
	return &Service{
		store:       store,
		enqueuer:    enqueuer,
		rateLimiter: rateLimiter,
	}
}

// Create validates a spec, persists a pending record, and enqueues it for
// async dispatch. It returns immediately; delivery outcome is only visible
// through the query API.
func (s *Service) Create(ctx context.Context, spec *CreateSpec) (*Notification, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	if s.rateLimiter != nil {
		allowed, err := s.rateLimiter.Allow(ctx, spec.Recipient)
		if err != nil {
			slog.Error("rate limit check failed, proceeding without limit", "recipient", spec.Recipient, "error", err)
			// Fail open — don't block the request when Redis is down
		} else if !allowed {
			return nil, common.NewValidationError("rate limit exceeded for recipient: " + spec.Recipient)
		}
	}

	now := time.Now().UTC()
	n := &Notification{
		ID:          uuid.New().String(),
		UserID:      spec.UserID,
		Channel:     spec.Channel,
		Status:      StatusPending,
		Priority:    spec.Priority,
		Title:       spec.Title,
		Content:     spec.Content,
		Data:        spec.Data,
		TemplateID:  spec.TemplateID,
		Recipient:   spec.Recipient,
		ScheduledAt: spec.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	if err := s.enqueuer.EnqueueSend(n); err != nil {
		// The reaper will pick the record up later; creation still succeeded.
		slog.Error("enqueue failed, record left pending for reaper",
			"id", n.ID,
			"channel", n.Channel,
			"error", err,
		)
		return n, nil
	}

	slog.Info("notification enqueued",
		"id", n.ID,
		"channel", n.Channel,
		"priority", n.Priority,
		"recipient", n.Recipient,
	)

	return n, nil
}

// CreateBatch processes an ordered sequence of specs, returning a per-item
// outcome for each. A validation failure on one item never aborts the rest.
func (s *Service) CreateBatch(ctx context.Context, specs []*CreateSpec) []BulkItemResult {
	results := make([]BulkItemResult, 0, len(specs))
	for i, spec := range specs {
		n, err := s.Create(ctx, spec)
		if err != nil {
			slog.Warn("bulk item rejected", "index", i, "error", err)
			results = append(results, BulkItemResult{Error: err.Error()})
			continue
		}
		results = append(results, BulkItemResult{Notification: n})
	}
	return results
}

// Get retrieves a notification by id.
func (s *Service) Get(ctx context.Context, id string) (*Notification, error) {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching notification: %w", err)
	}
	if n == nil {
		return nil, common.NewNotFoundError("notification", id)
	}
	return n, nil
}

// List retrieves notifications with pagination and filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResponse, error) {
	filter.Normalize()

	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	return &ListResponse{
		Notifications: items,
		Total:         total,
		Page:          filter.Page,
		PageSize:      filter.PageSize,
	}, nil
}

// Cancel terminates a notification before dispatch. Only pending records can
// be cancelled; once a worker has picked the job up, the attempt runs to
// completion and the caller gets an InvalidTransitionError.
func (s *Service) Cancel(ctx context.Context, id string) (*Notification, error) {
	n, err := s.store.ApplyTransition(ctx, id, AllowedFrom(StatusCancelled), StatusCancelled, TransitionChange{})
	if err != nil {
		return nil, err
	}

	slog.Info("notification cancelled", "id", id)
	return n, nil
}

// GetStats returns aggregate counts by status.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting notifications: %w", err)
	}
	return &Stats{
		Pending:   counts[StatusPending],
		Sent:      counts[StatusSent],
		Delivered: counts[StatusDelivered],
		Opened:    counts[StatusOpened],
		Clicked:   counts[StatusClicked],
		Bounced:   counts[StatusBounced],
		Failed:    counts[StatusFailed],
		Cancelled: counts[StatusCancelled],
	}, nil
}

// Reconcile ingests a provider delivery callback and moves the notification
// forward. Out-of-order and duplicate callbacks lose the store's conditional
// update and are ignored; an unknown external id is a NotFoundError the
// webhook handler logs without failing the request, since providers replay
// callbacks for data that may already be purged.
func (s *Service) Reconcile(ctx context.Context, externalID string, kind EventKind, at time.Time) error {
	if externalID == "" {
		return common.NewValidationError("external id is required")
	}

	target, ok := StatusForEvent(kind)
	if !ok {
		return common.NewValidationError("unknown event kind: " + string(kind))
	}

	n, err := s.store.GetByExternalID(ctx, externalID)
	if err != nil {
		return fmt.Errorf("fetching by external id: %w", err)
	}
	if n == nil {
		return common.NewNotFoundError("notification", externalID)
	}

	_, err = s.store.ApplyTransition(ctx, n.ID, AllowedFrom(target), target, TransitionChange{At: at})
	if common.IsInvalidTransition(err) {
		// Forward progress only. A delivered event after clicked, or a
		// replayed callback, lands here and is dropped.
		slog.Debug("ignoring out-of-order delivery event",
			"id", n.ID,
			"external_id", externalID,
			"event", kind,
			"current_status", n.Status,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("applying %s transition: %w", target, err)
	}

	slog.Info("delivery status reconciled",
		"id", n.ID,
		"external_id", externalID,
		"status", target,
	)
	return nil
}
