package notification

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskTypeSend is the asynq task type for dispatching notifications.
const TaskTypeSend = "notification:send"

// SendPayload is the serialized payload for a dispatch task. Only the id is
// carried; the worker re-reads the record so queue state stays derivable
// from the store.
type SendPayload struct {
	NotificationID string `json:"notification_id"`
}

// NewSendTask creates a new asynq task for dispatching a notification.
func NewSendTask(notificationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(SendPayload{NotificationID: notificationID})
	if err != nil {
		return nil, fmt.Errorf("marshaling task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeSend, payload), nil
}

// ParseSendPayload deserializes the task payload.
func ParseSendPayload(data []byte) (*SendPayload, error) {
	var p SendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshaling task payload: %w", err)
	}
	return &p, nil
}
