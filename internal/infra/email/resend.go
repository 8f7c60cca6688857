package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"
	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"
	"github.com/MrX1068/stunxtV2-sub005/internal/infra/template"
)

const defaultBaseURL = "https://api.resend.com"

var _ notification.Sender = (*ResendSender)(nil)

// ResendSender sends emails through the Resend API. Direct-content records
// are rendered locally through the layout engine; records carrying a
// template id are handed to the provider for remote rendering.
type ResendSender struct {
	apiKey      string
	fromAddress string
	fromName    string
	baseURL     string
	renderer    *template.Engine
	httpClient  *http.Client
}

// NewResendSender creates a new Resend email sender.
func NewResendSender(apiKey, fromAddress, fromName string, renderer *template.Engine) *ResendSender {
	return &ResendSender{
		apiKey:      apiKey,
		fromAddress: fromAddress,
		fromName:    fromName,
		baseURL:     defaultBaseURL,
		renderer:    renderer,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Channel returns the email channel identifier.
func (s *ResendSender) Channel() notification.Channel {
	return notification.ChannelEmail
}

// Send delivers an email and returns the provider message id. Both the
// direct-content and template paths report the same outcome shape.
func (s *ResendSender) Send(ctx context.Context, n *notification.Notification) (string, error) {
	from := s.fromAddress
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}

	payload := map[string]any{
		"from":    from,
		"to":      []string{n.Recipient},
		"subject": n.Title,
	}

	if n.TemplateID != "" {
		payload["template_id"] = n.TemplateID
		if n.Data != nil {
			payload["data"] = n.Data
		}
	} else {
		html, text, err := s.renderer.Render(n.Title, n.Content)
		if err != nil {
			return "", common.NewPermanentSendError("resend", "rendering email: "+err.Error())
		}
		payload["html"] = html
		if text != "" {
			payload["text"] = text
		}
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are retryable.
		return "", common.NewTransientSendError("resend", err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max
	if err != nil {
		return "", common.NewTransientSendError("resend", "reading response: "+err.Error())
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message    string `json:"message"`
			StatusCode int    `json:"statusCode"`
		}
		_ = json.Unmarshal(respBody, &errResp)

		msg := errResp.Message
		if msg == "" {
			msg = fmt.Sprintf("resend API error: status %d", resp.StatusCode)
		}

		// 4xx other than rate-limit means the provider rejected the request
		// itself (bad address, rejected content) and a retry cannot help.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", common.NewTransientSendError("resend", msg)
		}
		return "", common.NewPermanentSendError("resend", msg)
	}

	var successResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &successResp); err != nil {
		return "", common.NewTransientSendError("resend", "parsing response: "+err.Error())
	}

	return successResp.ID, nil
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (s *ResendSender) SetBaseURL(u string) {
	s.baseURL = u
}
