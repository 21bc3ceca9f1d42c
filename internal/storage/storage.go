package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Load when nothing was saved under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a durable key-value store for serialized conversations.
// Values are opaque bytes; encoding belongs to the caller.
// Clear on an absent key is not an error.
// Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Clear(ctx context.Context, key string) error
	Close() error
}

// Event represents a single finished exchange between the user and the bot.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	ChatID      string    `json:"chat_id"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Success     bool      `json:"success"`
	IsError     bool      `json:"is_error,omitempty"`
}

// Recorder abstracts persistence of exchange events.
// LoadInteractions should return events in chronological order.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
