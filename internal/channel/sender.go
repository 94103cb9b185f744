// internal/channel/sender.go
package channel

import "context"

// Message is the channel-agnostic payload handed to a sender. Subject and
// HTML only matter for email; Text is the plain rendering used for chat.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Result is the uniform outcome every transport adapter reports. Adapters
// never return Go errors past their boundary; transport failures come back
// as Success=false with Error set.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Sender performs exactly one outbound network call per invocation.
// Retry policy lives with the router and orchestrator, not here.
type Sender interface {
	Send(ctx context.Context, destination string, msg Message) Result
}
