package notification

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for the notification domain.
type Handler struct {
	service *Service
}

// NewHandler creates a new notification handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /api/v1/notifications
// Persists a pending record, enqueues it for async dispatch, returns 201.
func (h *Handler) Create(c *gin.Context) {
	var spec CreateSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	n, err := h.service.Create(c.Request.Context(), &spec)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusCreated, n)
}

// CreateBatch handles POST /api/v1/notifications/bulk
// Returns per-item outcomes; a bad item never aborts the batch.
func (h *Handler) CreateBatch(c *gin.Context) {
	var req struct {
		Notifications []*CreateSpec `json:"notifications" binding:"required,min=1,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	results := h.service.CreateBatch(c.Request.Context(), req.Notifications)
	common.Success(c, http.StatusOK, gin.H{"results": results})
}

// Get handles GET /api/v1/notifications/:id
func (h *Handler) Get(c *gin.Context) {
	n, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, n)
}

// List handles GET /api/v1/notifications
func (h *Handler) List(c *gin.Context) {
	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid query parameters: "+err.Error())
		return
	}

	resp, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, resp)
}

// Cancel handles POST /api/v1/notifications/:id/cancel
// Only pending records can be cancelled; in-flight sends run to completion.
func (h *Handler) Cancel(c *gin.Context) {
	n, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, n)
}

// Stats handles GET /api/v1/notifications/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, stats)
}

// emailWebhookEvents maps Resend event names to delivery event kinds.
// Unlisted event types are acknowledged and ignored.
var emailWebhookEvents = map[string]EventKind{
	"email.delivered": EventDelivered,
	"email.opened":    EventOpened,
	"email.clicked":   EventClicked,
	"email.bounced":   EventBounced,
}

// EmailWebhook handles POST /api/v1/webhooks/email
// Receives delivery status callbacks from the email provider. It always
// answers quickly with 2xx for recognized payload shapes — even when the
// message id is unknown — to avoid provider retry storms.
func (h *Handler) EmailWebhook(c *gin.Context) {
	var event struct {
		Type      string     `json:"type"`
		CreatedAt *time.Time `json:"created_at"`
		Data      struct {
			EmailID string `json:"email_id"`
		} `json:"data"`
	}

	if err := c.ShouldBindJSON(&event); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid webhook payload: "+err.Error())
		return
	}

	kind, ok := emailWebhookEvents[event.Type]
	if !ok {
		slog.Info("ignoring webhook event", "type", event.Type)
		common.Success(c, http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	at := time.Now().UTC()
	if event.CreatedAt != nil {
		at = *event.CreatedAt
	}

	err := h.service.Reconcile(c.Request.Context(), event.Data.EmailID, kind, at)
	if common.IsNotFound(err) {
		// Late or replayed callback for a purged record. Log and move on.
		slog.Warn("webhook for unknown message id",
			"event_type", event.Type,
			"email_id", event.Data.EmailID,
		)
		common.Success(c, http.StatusOK, gin.H{"status": "unknown_id"})
		return
	}
	if err != nil {
		slog.Error("webhook processing failed",
			"event_type", event.Type,
			"email_id", event.Data.EmailID,
			"error", err,
		)
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, gin.H{"status": "processed"})
}

// RegisterRoutes registers notification routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/notifications", h.Create)
	rg.POST("/notifications/bulk", h.CreateBatch)
	rg.GET("/notifications", h.List)
	rg.GET("/notifications/stats", h.Stats)
	rg.GET("/notifications/:id", h.Get)
	rg.POST("/notifications/:id/cancel", h.Cancel)
	rg.POST("/webhooks/email", h.EmailWebhook)
}
