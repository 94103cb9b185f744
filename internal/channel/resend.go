// internal/channel/resend.go
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

// ResendSender delivers transactional email through the Resend API.
type ResendSender struct {
	APIKey  string
	From    string
	BaseURL string
	Client  *http.Client
}

func NewResendSender(apiKey, from string, timeout time.Duration) *ResendSender {
	return &ResendSender{
		APIKey:  apiKey,
		From:    from,
		BaseURL: resendEndpoint,
		Client:  &http.Client{Timeout: timeout},
	}
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (s *ResendSender) Send(ctx context.Context, destination string, msg Message) Result {
	if s.APIKey == "" {
		return Result{Success: false, Error: "RESEND_API_KEY is not set"}
	}

	html := msg.HTML
	if html == "" {
		html = msg.Text
	}

	payload, err := json.Marshal(map[string]string{
		"from":    s.From,
		"to":      destination,
		"subject": msg.Subject,
		"html":    html,
	})
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	var body resendResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("resend API error: malformed response (HTTP %d)", resp.StatusCode)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errMsg := body.Message
		if errMsg == "" {
			errMsg = fmt.Sprintf("resend API error: %d", resp.StatusCode)
		}
		return Result{Success: false, Error: errMsg}
	}

	return Result{Success: true, MessageID: body.ID}
}
