package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"
	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) (*ResendSender, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	engine, err := template.NewEngine()
	require.NoError(t, err)

	s := NewResendSender("test-key", "no-reply@example.com", "Example", engine)
	s.SetBaseURL(srv.URL)
	return s, srv
}

func emailNotification() *notification.Notification {
	return &notification.Notification{
		ID:        "n1",
		Channel:   notification.ChannelEmail,
		Status:    notification.StatusPending,
		Title:     "Welcome aboard",
		Content:   "<p>Thanks for signing up.</p>",
		Recipient: "a@x.com",
	}
}

func TestResendSenderDirectContent(t *testing.T) {
	var captured map[string]any
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "msg-1"})
	})

	id, err := s.Send(context.Background(), emailNotification())
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	assert.Equal(t, "Example <no-reply@example.com>", captured["from"])
	assert.Equal(t, "Welcome aboard", captured["subject"])
	assert.Contains(t, captured["html"], "Thanks for signing up")
	assert.NotEmpty(t, captured["text"])
	assert.NotContains(t, captured, "template_id")
}

func TestResendSenderTemplateSend(t *testing.T) {
	var captured map[string]any
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "msg-2"})
	})

	n := emailNotification()
	n.Content = ""
	n.TemplateID = "tmpl-welcome"
	n.Data = map[string]any{"name": "Ada"}

	id, err := s.Send(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "msg-2", id)

	assert.Equal(t, "tmpl-welcome", captured["template_id"])
	assert.Equal(t, map[string]any{"name": "Ada"}, captured["data"])
	assert.NotContains(t, captured, "html")
}

func TestResendSenderRateLimitIsTransient(t *testing.T) {
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "rate limit exceeded"})
	})

	_, err := s.Send(context.Background(), emailNotification())
	require.Error(t, err)
	assert.False(t, common.IsPermanentSendError(err))
}

func TestResendSenderServerErrorIsTransient(t *testing.T) {
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := s.Send(context.Background(), emailNotification())
	require.Error(t, err)
	assert.False(t, common.IsPermanentSendError(err))
}

func TestResendSenderRejectionIsPermanent(t *testing.T) {
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "invalid `to` address"})
	})

	_, err := s.Send(context.Background(), emailNotification())
	require.Error(t, err)
	assert.True(t, common.IsPermanentSendError(err))
	assert.Contains(t, err.Error(), "invalid `to` address")
}

func TestResendSenderConnectionFailureIsTransient(t *testing.T) {
	s, srv := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := s.Send(context.Background(), emailNotification())
	require.Error(t, err)
	assert.False(t, common.IsPermanentSendError(err))
}
