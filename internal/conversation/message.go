package conversation

import "time"

// Default texts shown when none are configured.
const (
	DefaultWelcomeMessage = "👋 Welcome to the Construction Project Management Assistant! How can I help you today?"
	DefaultErrorMessage   = "Sorry, I encountered an error while processing your request. Please try again."
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Metadata echoes what the remote service reported for a reply.
type Metadata struct {
	Success *bool `json:"success,omitempty"`
}

// Message is a single user or bot turn. Messages are never edited after they
// are appended to a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"isError,omitempty"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

func NewUserMessage(content string, now time.Time) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: now.UTC()}
}

// NewBotMessage builds a reply carrying the service's success flag.
func NewBotMessage(content string, success bool, now time.Time) Message {
	return Message{
		Role:      RoleBot,
		Content:   content,
		Timestamp: now.UTC(),
		Metadata:  &Metadata{Success: &success},
	}
}

// NewErrorMessage builds the locally synthesized reply shown after a failed send.
func NewErrorMessage(content string, now time.Time) Message {
	return Message{Role: RoleBot, Content: content, Timestamp: now.UTC(), IsError: true}
}

func NewWelcomeMessage(content string, now time.Time) Message {
	return Message{Role: RoleBot, Content: content, Timestamp: now.UTC()}
}

// Succeeded reports whether the service marked the reply as successful.
func (m Message) Succeeded() bool {
	return m.Metadata != nil && m.Metadata.Success != nil && *m.Metadata.Success
}

func (m Message) clone() Message {
	if m.Metadata != nil {
		md := *m.Metadata
		if md.Success != nil {
			v := *md.Success
			md.Success = &v
		}
		m.Metadata = &md
	}
	return m
}
