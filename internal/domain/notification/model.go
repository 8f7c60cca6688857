package notification

import (
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"
)

// Channel represents a notification delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "in_app"
)

// Channels lists all supported delivery channels.
var Channels = []Channel{ChannelEmail, ChannelPush, ChannelSMS, ChannelInApp}

// IsValidChannel checks whether a channel is recognized.
func IsValidChannel(ch Channel) bool {
	for _, c := range Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Priority affects dequeue ordering within a channel, never correctness.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValidPriority checks whether a priority is recognized.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Notification is the persisted record of one message to be delivered
// through a specific channel. The record store holds the authoritative
// status; everything else proposes transitions through ApplyTransition.
type Notification struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Channel      Channel        `json:"channel"`
	Status       Status         `json:"status"`
	Priority     Priority       `json:"priority"`
	Title        string         `json:"title"`
	Content      string         `json:"content,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	TemplateID   string         `json:"template_id,omitempty"`
	ExternalID   string         `json:"external_id,omitempty"`
	Recipient    string         `json:"recipient"`
	ErrorMessage string         `json:"error_message,omitempty"`
	RetryCount   int            `json:"retry_count"`
	ScheduledAt  *time.Time     `json:"scheduled_at,omitempty"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	DeliveredAt  *time.Time     `json:"delivered_at,omitempty"`
	OpenedAt     *time.Time     `json:"opened_at,omitempty"`
	ClickedAt    *time.Time     `json:"clicked_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CreateSpec is the API request payload for creating a notification.
type CreateSpec struct {
	UserID      string         `json:"user_id" binding:"required"`
	Channel     Channel        `json:"channel" binding:"required"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Recipient   string         `json:"recipient"`
	TemplateID  string         `json:"template_id"`
	Data        map[string]any `json:"data"`
	Priority    Priority       `json:"priority"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
}

// Validate checks the spec's required fields. Content may be empty when a
// template id is present, since the provider renders remotely in that case.
func (s *CreateSpec) Validate() error {
	if !IsValidChannel(s.Channel) {
		return common.NewValidationError("unsupported channel: " + string(s.Channel))
	}
	if s.Recipient == "" {
		return common.NewValidationError("recipient is required")
	}
	if s.Title == "" {
		return common.NewValidationError("title is required")
	}
	if s.Content == "" && s.TemplateID == "" {
		return common.NewValidationError("content is required unless template_id is set")
	}
	if s.Priority == "" {
		s.Priority = PriorityNormal
	} else if !IsValidPriority(s.Priority) {
		return common.NewValidationError("unsupported priority: " + string(s.Priority))
	}
	return nil
}

// BulkItemResult is the per-item outcome of a bulk creation request.
// Exactly one of Notification or Error is set.
type BulkItemResult struct {
	Notification *Notification `json:"notification,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// ListFilter defines pagination and filtering options for listing notifications.
type ListFilter struct {
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	UserID   string     `form:"user_id"`
	Channel  string     `form:"channel"`
	Status   string     `form:"status"`
	From     *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// Normalize applies pagination defaults in place.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}

// ListResponse wraps a paginated list of notifications.
type ListResponse struct {
	Notifications []*Notification `json:"notifications"`
	Total         int             `json:"total"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
}

// Stats holds aggregate notification counts by status for dashboards.
type Stats struct {
	Pending   int `json:"pending"`
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Opened    int `json:"opened"`
	Clicked   int `json:"clicked"`
	Bounced   int `json:"bounced"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}
