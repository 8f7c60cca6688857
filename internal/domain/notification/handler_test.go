package notification_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(st *store.MemoryStore, enq *fakeEnqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := notification.NewService(st, enq, nil)
	h := notification.NewHandler(svc)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerCreate(t *testing.T) {
	st := store.NewMemoryStore()
	r := newTestRouter(st, &fakeEnqueuer{})

	w := postJSON(t, r, "/api/v1/notifications", map[string]any{
		"user_id":   "user-1",
		"channel":   "email",
		"title":     "Welcome",
		"content":   "<p>Hi</p>",
		"recipient": "a@x.com",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool                       `json:"success"`
		Data    *notification.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, notification.StatusPending, resp.Data.Status)
}

func TestHandlerCreateValidationFailure(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore(), &fakeEnqueuer{})

	w := postJSON(t, r, "/api/v1/notifications", map[string]any{
		"user_id": "user-1",
		"channel": "email",
		"title":   "Welcome",
		"content": "<p>Hi</p>",
		// recipient missing
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerBulkPartialFailure(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore(), &fakeEnqueuer{})

	item := func(recipient string) map[string]any {
		return map[string]any{
			"user_id":   "user-1",
			"channel":   "email",
			"title":     "Welcome",
			"content":   "<p>Hi</p>",
			"recipient": recipient,
		}
	}

	w := postJSON(t, r, "/api/v1/notifications/bulk", map[string]any{
		"notifications": []map[string]any{item("one@x.com"), item(""), item("three@x.com")},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Results []notification.BulkItemResult `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Results, 3)
	assert.NotNil(t, resp.Data.Results[0].Notification)
	assert.NotEmpty(t, resp.Data.Results[1].Error)
	assert.NotNil(t, resp.Data.Results[2].Notification)
}

func TestHandlerEmailWebhook(t *testing.T) {
	st := store.NewMemoryStore()
	r := newTestRouter(st, &fakeEnqueuer{})
	ctx := context.Background()

	svc := notification.NewService(st, &fakeEnqueuer{}, nil)
	n, err := svc.Create(ctx, emailSpec("a@x.com"))
	require.NoError(t, err)
	_, err = st.ApplyTransition(ctx, n.ID,
		notification.AllowedFrom(notification.StatusSent), notification.StatusSent,
		notification.TransitionChange{ExternalID: "msg-1"})
	require.NoError(t, err)

	w := postJSON(t, r, "/api/v1/webhooks/email", map[string]any{
		"type": "email.delivered",
		"data": map[string]any{"email_id": "msg-1"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	got, err := st.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusDelivered, got.Status)

	// Replaying the same event is acknowledged, not an error.
	w = postJSON(t, r, "/api/v1/webhooks/email", map[string]any{
		"type": "email.delivered",
		"data": map[string]any{"email_id": "msg-1"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlerEmailWebhookUnknownID(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore(), &fakeEnqueuer{})

	// A callback for a purged record still answers 2xx to stop provider retries.
	w := postJSON(t, r, "/api/v1/webhooks/email", map[string]any{
		"type": "email.bounced",
		"data": map[string]any{"email_id": "ghost"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlerEmailWebhookIgnoresUnknownEvents(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore(), &fakeEnqueuer{})

	w := postJSON(t, r, "/api/v1/webhooks/email", map[string]any{
		"type": "email.complained",
		"data": map[string]any{"email_id": "msg-1"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}

func TestHandlerGetAndCancel(t *testing.T) {
	st := store.NewMemoryStore()
	enq := &fakeEnqueuer{}
	r := newTestRouter(st, enq)

	svc := notification.NewService(st, enq, nil)
	n, err := svc.Create(context.Background(), emailSpec("a@x.com"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/"+n.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, r, "/api/v1/notifications/"+n.ID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Cancelling twice is a conflict.
	w = postJSON(t, r, "/api/v1/notifications/"+n.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandlerGetNotFound(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore(), &fakeEnqueuer{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerStats(t *testing.T) {
	st := store.NewMemoryStore()
	enq := &fakeEnqueuer{}
	r := newTestRouter(st, enq)

	svc := notification.NewService(st, enq, nil)
	_, err := svc.Create(context.Background(), emailSpec("a@x.com"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data notification.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Pending)
}
