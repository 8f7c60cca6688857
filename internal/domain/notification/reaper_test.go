package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaperSweepRecoversStalePending(t *testing.T) {
	st := store.NewMemoryStore()
	enq := &fakeEnqueuer{}
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)
	stale := &notification.Notification{
		ID:        "n-stale",
		UserID:    "user-1",
		Channel:   notification.ChannelEmail,
		Status:    notification.StatusPending,
		Priority:  notification.PriorityNormal,
		Title:     "Hi",
		Content:   "body",
		Recipient: "a@x.com",
		CreatedAt: old,
		UpdatedAt: old,
	}
	require.NoError(t, st.Create(ctx, stale))

	fresh := *stale
	fresh.ID = "n-fresh"
	fresh.CreatedAt = time.Now().UTC()
	fresh.UpdatedAt = fresh.CreatedAt
	require.NoError(t, st.Create(ctx, &fresh))

	reaper := notification.NewReaper(st, enq, notification.ReaperConfig{
		Interval:       time.Minute,
		StaleThreshold: 10 * time.Minute,
		BatchSize:      50,
	})

	reaper.Sweep(ctx)

	assert.Equal(t, []string{"n-stale"}, enq.enqueued)
}

func TestReaperSweepSkipsFutureScheduled(t *testing.T) {
	st := store.NewMemoryStore()
	enq := &fakeEnqueuer{}
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)
	future := time.Now().Add(2 * time.Hour)
	scheduled := &notification.Notification{
		ID:          "n-scheduled",
		UserID:      "user-1",
		Channel:     notification.ChannelEmail,
		Status:      notification.StatusPending,
		Priority:    notification.PriorityNormal,
		Title:       "Hi",
		Content:     "body",
		Recipient:   "a@x.com",
		ScheduledAt: &future,
		CreatedAt:   old,
		UpdatedAt:   old,
	}
	require.NoError(t, st.Create(ctx, scheduled))

	reaper := notification.NewReaper(st, enq, notification.ReaperConfig{
		StaleThreshold: 10 * time.Minute,
	})

	reaper.Sweep(ctx)

	assert.Empty(t, enq.enqueued, "a future-scheduled record is not stale")
}
