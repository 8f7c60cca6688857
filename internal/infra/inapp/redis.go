package inapp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"
	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	feedKeyPrefix  = "inapp:feed:"
	feedChanPrefix = "inapp:events:"
	feedMaxLength  = 200
)

var _ notification.Sender = (*RedisSender)(nil)

// RedisSender delivers in-app notifications by pushing them onto the
// recipient's Redis feed list and publishing a wake-up event for connected
// clients. There is no external provider, so the message id is minted
// locally and delivery callbacks never occur for this channel.
type RedisSender struct {
	client *redis.Client
}

// NewRedisSender creates a new in-app sender on the given Redis client.
func NewRedisSender(client *redis.Client) *RedisSender {
	return &RedisSender{client: client}
}

// Channel returns the in-app channel identifier.
func (s *RedisSender) Channel() notification.Channel {
	return notification.ChannelInApp
}

// Send pushes the notification onto the recipient's feed and returns the
// locally minted message id.
func (s *RedisSender) Send(ctx context.Context, n *notification.Notification) (string, error) {
	messageID := uuid.New().String()

	entry := map[string]any{
		"message_id":      messageID,
		"notification_id": n.ID,
		"title":           n.Title,
		"content":         n.Content,
		"data":            n.Data,
		"created_at":      time.Now().UTC().Format(time.RFC3339Nano),
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshaling feed entry: %w", err)
	}

	feedKey := feedKeyPrefix + n.Recipient

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, feedKey, payload)
	pipe.LTrim(ctx, feedKey, 0, feedMaxLength-1)
	pipe.Publish(ctx, feedChanPrefix+n.Recipient, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		// Redis unavailability is transient by definition.
		return "", common.NewTransientSendError("inapp", err.Error())
	}

	return messageID, nil
}
