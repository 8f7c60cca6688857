package queue

import (
	"testing"

	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"

	"github.com/stretchr/testify/assert"
)

func TestQueueName(t *testing.T) {
	assert.Equal(t, "email:urgent", QueueName(notification.ChannelEmail, notification.PriorityUrgent))
	assert.Equal(t, "sms:low", QueueName(notification.ChannelSMS, notification.PriorityLow))
	// Missing priority defaults to normal.
	assert.Equal(t, "push:normal", QueueName(notification.ChannelPush, ""))
}

func TestChannelQueuesWeighting(t *testing.T) {
	queues := channelQueues(notification.ChannelEmail)

	assert.Len(t, queues, 4)
	assert.Greater(t, queues["email:urgent"], queues["email:high"])
	assert.Greater(t, queues["email:high"], queues["email:normal"])
	assert.Greater(t, queues["email:normal"], queues["email:low"])
}
