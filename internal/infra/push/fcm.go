package push

import (
	"context"
	"fmt"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"
	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var _ notification.Sender = (*FCMSender)(nil)

// FCMSender delivers push notifications through Firebase Cloud Messaging.
// The notification's recipient field carries the device token.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initializes the Firebase app and messaging client from a
// service account credentials file.
func NewFCMSender(ctx context.Context, credentialsPath string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting messaging client: %w", err)
	}

	return &FCMSender{client: client}, nil
}

// Channel returns the push channel identifier.
func (s *FCMSender) Channel() notification.Channel {
	return notification.ChannelPush
}

// Send delivers a push message and returns the FCM message id.
func (s *FCMSender) Send(ctx context.Context, n *notification.Notification) (string, error) {
	msg := &messaging.Message{
		Token: n.Recipient,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Content,
		},
		Data: stringifyData(n.Data),
	}

	id, err := s.client.Send(ctx, msg)
	if err != nil {
		// A dead or malformed token cannot succeed on retry.
		if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) ||
			messaging.IsSenderIDMismatch(err) || messaging.IsThirdPartyAuthError(err) {
			return "", common.NewPermanentSendError("fcm", err.Error())
		}
		return "", common.NewTransientSendError("fcm", err.Error())
	}

	return id, nil
}

// stringifyData converts the free-form payload to the string map FCM requires.
func stringifyData(data map[string]any) map[string]string {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = fmt.Sprint(v)
	}
	return out
}
