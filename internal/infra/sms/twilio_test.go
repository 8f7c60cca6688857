package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"
	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) *TwilioSender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewTwilioSender("AC123", "token", "+15550009999")
	s.SetBaseURL(srv.URL)
	return s
}

func smsNotification() *notification.Notification {
	return &notification.Notification{
		ID:        "n1",
		Channel:   notification.ChannelSMS,
		Status:    notification.StatusPending,
		Title:     "Alert",
		Content:   "Your code is 123456",
		Recipient: "+15550001111",
	}
}

func TestTwilioSenderSend(t *testing.T) {
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15550001111", r.PostForm.Get("To"))
		assert.Equal(t, "+15550009999", r.PostForm.Get("From"))
		assert.Contains(t, r.PostForm.Get("Body"), "Your code is 123456")

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "SM123"})
	})

	sid, err := s.Send(context.Background(), smsNotification())
	require.NoError(t, err)
	assert.Equal(t, "SM123", sid)
}

func TestTwilioSenderInvalidNumberIsPermanent(t *testing.T) {
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 21211, "message": "Invalid 'To' Phone Number"})
	})

	_, err := s.Send(context.Background(), smsNotification())
	require.Error(t, err)
	assert.True(t, common.IsPermanentSendError(err))
}

func TestTwilioSenderServerErrorIsTransient(t *testing.T) {
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := s.Send(context.Background(), smsNotification())
	require.Error(t, err)
	assert.False(t, common.IsPermanentSendError(err))
}
