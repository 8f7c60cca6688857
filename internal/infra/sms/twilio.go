package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"
	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"
)

const defaultBaseURL = "https://api.twilio.com"

var _ notification.Sender = (*TwilioSender)(nil)

// TwilioSender delivers SMS through the Twilio Messages API.
type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

// NewTwilioSender creates a new Twilio SMS sender.
func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Channel returns the SMS channel identifier.
func (s *TwilioSender) Channel() notification.Channel {
	return notification.ChannelSMS
}

// Send delivers an SMS and returns the Twilio message SID. The notification
// title is prepended to the body so short-form channels keep the headline.
func (s *TwilioSender) Send(ctx context.Context, n *notification.Notification) (string, error) {
	body := n.Content
	if n.Title != "" {
		body = n.Title + "\n" + body
	}

	form := url.Values{}
	form.Set("From", s.fromNumber)
	form.Set("To", n.Recipient)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", common.NewTransientSendError("twilio", err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", common.NewTransientSendError("twilio", "reading response: "+err.Error())
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &errResp)

		msg := errResp.Message
		if msg == "" {
			msg = fmt.Sprintf("twilio API error: status %d", resp.StatusCode)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", common.NewTransientSendError("twilio", msg)
		}
		// Invalid phone number, blocked destination, rejected content.
		return "", common.NewPermanentSendError("twilio", msg)
	}

	var successResp struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(respBody, &successResp); err != nil {
		return "", common.NewTransientSendError("twilio", "parsing response: "+err.Error())
	}

	return successResp.SID, nil
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (s *TwilioSender) SetBaseURL(u string) {
	s.baseURL = u
}
