// Package telegraph relays dashboard events to a chat platform (Slack or
// Discord) and posts a periodic activity digest.
package telegraph

import "context"

// Adapter is the interface platform-specific implementations satisfy. The
// relay only posts, so adapters are send-only.
type Adapter interface {
	// Connect authenticates with the chat platform.
	Connect(ctx context.Context) error

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close releases the connection.
	Close() error
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string           // target channel; adapters fall back to their default
	ThreadID  string           // thread to reply in (empty for top-level)
	Text      string           // message text (platform-native formatting)
	Events    []FormattedEvent // structured event attachments
}

// FormattedEvent represents a dashboard event formatted for display in chat.
type FormattedEvent struct {
	Title    string  // event headline (e.g. "NFT minted")
	Body     string  // detail text
	Severity string  // "info", "warning", "error", "success"
	Color    string  // sidebar color hint (e.g. "#36a64f" for success)
	Fields   []Field // key-value metadata pairs
}

// Field is a key-value pair displayed in an event attachment.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}
