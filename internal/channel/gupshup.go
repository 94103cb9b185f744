// internal/channel/gupshup.go
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const gupshupEndpoint = "https://api.gupshup.io/sm/api/v1/msg"

// GupshupSender delivers WhatsApp messages through the Gupshup business
// API. One form POST per Send; the gateway reports acceptance in the body,
// so a 2xx alone is not success.
type GupshupSender struct {
	APIKey  string
	Source  string // WhatsApp business number
	AppName string
	BaseURL string
	Client  *http.Client
}

func NewGupshupSender(apiKey, source, appName string, timeout time.Duration) *GupshupSender {
	return &GupshupSender{
		APIKey:  apiKey,
		Source:  source,
		AppName: appName,
		BaseURL: gupshupEndpoint,
		Client:  &http.Client{Timeout: timeout},
	}
}

type gupshupResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

func (s *GupshupSender) Send(ctx context.Context, destination string, msg Message) Result {
	if s.APIKey == "" {
		return Result{Success: false, Error: "GUPSHUP_API_KEY is not set"}
	}

	text, err := json.Marshal(map[string]string{"type": "text", "text": msg.Text})
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	form := url.Values{}
	form.Set("channel", "whatsapp")
	form.Set("source", s.Source)
	form.Set("destination", FormatPhone(destination))
	form.Set("message", string(text))
	form.Set("src.name", s.AppName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	var body gupshupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("gupshup API error: malformed response (HTTP %d)", resp.StatusCode)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || body.Status != "submitted" {
		errMsg := body.Message
		if errMsg == "" {
			errMsg = fmt.Sprintf("gupshup API error: %d", resp.StatusCode)
		}
		return Result{Success: false, Error: errMsg}
	}

	return Result{Success: true, MessageID: body.MessageID}
}

// FormatPhone strips non-digits and defaults bare 10-digit numbers to the
// Indian country code, matching the gateway's expectations.
func FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		return "91" + digits
	}
	return digits
}
