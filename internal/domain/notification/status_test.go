package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_ForwardOnly(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to sent", StatusPending, StatusSent, true},
		{"sent to delivered", StatusSent, StatusDelivered, true},
		{"delivered to opened", StatusDelivered, StatusOpened, true},
		{"opened to clicked", StatusOpened, StatusClicked, true},
		{"sent to opened skips delivered", StatusSent, StatusOpened, true},
		{"sent to clicked skips both", StatusSent, StatusClicked, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to bounced", StatusPending, StatusBounced, true},
		{"sent to bounced", StatusSent, StatusBounced, true},
		{"delivered to bounced", StatusDelivered, StatusBounced, true},

		{"clicked back to sent", StatusClicked, StatusSent, false},
		{"opened back to delivered", StatusOpened, StatusDelivered, false},
		{"delivered back to sent", StatusDelivered, StatusSent, false},
		{"failed to sent", StatusFailed, StatusSent, false},
		{"cancelled to sent", StatusCancelled, StatusSent, false},
		{"sent to failed", StatusSent, StatusFailed, false},
		{"sent to cancelled", StatusSent, StatusCancelled, false},
		{"opened to bounced", StatusOpened, StatusBounced, false},
		{"bounced to delivered", StatusBounced, StatusDelivered, false},
		{"pending to delivered", StatusPending, StatusDelivered, false},
		{"pending to opened", StatusPending, StatusOpened, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	all := []Status{
		StatusPending, StatusSent, StatusDelivered, StatusOpened,
		StatusClicked, StatusBounced, StatusFailed, StatusCancelled,
	}

	for _, from := range []Status{StatusFailed, StatusCancelled} {
		for _, to := range all {
			assert.False(t, CanTransition(from, to), "%s -> %s must be rejected", from, to)
		}
	}
}

func TestStatusForEvent(t *testing.T) {
	for kind, want := range map[EventKind]Status{
		EventDelivered: StatusDelivered,
		EventOpened:    StatusOpened,
		EventClicked:   StatusClicked,
		EventBounced:   StatusBounced,
	} {
		got, ok := StatusForEvent(kind)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := StatusForEvent("complained")
	assert.False(t, ok)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusFailed))
	assert.True(t, IsTerminal(StatusCancelled))
	assert.True(t, IsTerminal(StatusBounced))
	assert.True(t, IsTerminal(StatusClicked))
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusSent))
	assert.False(t, IsTerminal(StatusDelivered))
	assert.False(t, IsTerminal(StatusOpened))
}
