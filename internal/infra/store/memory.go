package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"
	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"
)

var _ notification.NotificationStore = (*MemoryStore)(nil)

// MemoryStore is a mutex-guarded in-memory NotificationStore. It backs the
// test suites and local development; the transition semantics match the
// Postgres implementation exactly, including single-winner races and
// set-once timestamps.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*notification.Notification
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*notification.Notification)}
}

// Create inserts a new notification record.
func (s *MemoryStore) Create(ctx context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.records[n.ID] = &cp
	return nil
}

// GetByID retrieves a notification by its id. Returns nil, nil if absent.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

// GetByExternalID retrieves a notification by its provider message id.
func (s *MemoryStore) GetByExternalID(ctx context.Context, externalID string) (*notification.Notification, error) {
	if externalID == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.records {
		if n.ExternalID == externalID {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

// ApplyTransition atomically moves a record to the target status if its
// current status is in from. The whole check-and-update holds the lock, so
// concurrent callers racing on the same id see exactly one winner.
func (s *MemoryStore) ApplyTransition(ctx context.Context, id string, from []notification.Status, to notification.Status, change notification.TransitionChange) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[id]
	if !ok {
		return nil, common.NewNotFoundError("notification", id)
	}

	inFrom := false
	for _, st := range from {
		if n.Status == st {
			inFrom = true
			break
		}
	}
	if !inFrom {
		return nil, common.NewInvalidTransitionError(id, string(n.Status), string(to))
	}

	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	n.Status = to
	if change.ExternalID != "" {
		n.ExternalID = change.ExternalID
	}
	if change.ErrorMessage != nil {
		n.ErrorMessage = *change.ErrorMessage
	}

	// Timestamps are set once, the first time the state is reached.
	switch to {
	case notification.StatusSent:
		if n.SentAt == nil {
			n.SentAt = &at
		}
	case notification.StatusDelivered:
		if n.DeliveredAt == nil {
			n.DeliveredAt = &at
		}
	case notification.StatusOpened:
		if n.OpenedAt == nil {
			n.OpenedAt = &at
		}
	case notification.StatusClicked:
		if n.ClickedAt == nil {
			n.ClickedAt = &at
		}
	}
	n.UpdatedAt = time.Now().UTC()

	cp := *n
	return &cp, nil
}

// IncrementRetry atomically bumps retry_count and returns the new value.
func (s *MemoryStore) IncrementRetry(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[id]
	if !ok {
		return 0, common.NewNotFoundError("notification", id)
	}
	n.RetryCount++
	n.UpdatedAt = time.Now().UTC()
	return n.RetryCount, nil
}

// List retrieves notifications ordered by created_at descending with id as
// tie-break, matching the Postgres ordering so pagination stays stable.
func (s *MemoryStore) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, int, error) {
	filter.Normalize()

	s.mu.Lock()
	matched := make([]*notification.Notification, 0, len(s.records))
	for _, n := range s.records {
		if filter.UserID != "" && n.UserID != filter.UserID {
			continue
		}
		if filter.Channel != "" && string(n.Channel) != filter.Channel {
			continue
		}
		if filter.Status != "" && string(n.Status) != filter.Status {
			continue
		}
		if filter.From != nil && n.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && n.CreatedAt.After(*filter.To) {
			continue
		}
		cp := *n
		matched = append(matched, &cp)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}

	return matched[start:end], total, nil
}

// ListStale retrieves pending records not touched since olderThan.
func (s *MemoryStore) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	stale := make([]*notification.Notification, 0)
	for _, n := range s.records {
		if n.Status == notification.StatusPending && n.UpdatedAt.Before(olderThan) {
			cp := *n
			stale = append(stale, &cp)
		}
	}
	s.mu.Unlock()

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// CountByStatus returns aggregate counts per status.
func (s *MemoryStore) CountByStatus(ctx context.Context) (map[notification.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[notification.Status]int)
	for _, n := range s.records {
		counts[n.Status]++
	}
	return counts, nil
}
