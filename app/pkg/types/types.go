package types

import "context"

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// Message represents a user input or an assistant reply moving through a channel
type Message struct {
	ID        string
	Content   string
	Role      string // "user", "assistant", "system"
	ChannelID string // Source channel identifier (e.g., "slack", "cli")
	UserID    string
	PeerID    string // Channel/conversation to deliver the reply into
	ThreadTS  string // Thread marker for threaded replies, when the channel supports it
	RequestID string
	Meta      map[string]interface{}
}

// Agent represents the core reasoning entity
type Agent interface {
	Process(ctx context.Context, msg Message) (Message, error)
	Name() string
}

// Channel represents an input/output interface (Slack, CLI)
type Channel interface {
	Start(ctx context.Context, handler func(Message)) error
	Send(ctx context.Context, msg Message) error
	ID() string
}

// Gateway orchestrates channels and the agent
type Gateway interface {
	RegisterChannel(c Channel)
	Start(ctx context.Context) error
}
