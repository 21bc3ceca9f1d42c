package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"chat-widget/internal/storage"
)

// Store is the append-only conversation, mirrored to a storage.Store key
// after every append.
type Store struct {
	mu       sync.RWMutex
	backend  storage.Store
	key      string
	welcome  string
	now      func() time.Time
	messages []Message
}

type Option func(*Store)

// WithClock replaces time.Now for timestamps of seeded messages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore binds a conversation to key in backend. An empty welcome means
// DefaultWelcomeMessage.
func NewStore(backend storage.Store, key, welcome string, opts ...Option) *Store {
	if welcome == "" {
		welcome = DefaultWelcomeMessage
	}
	s := &Store{backend: backend, key: key, welcome: welcome, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load returns the persisted conversation. Missing, unreadable and corrupt
// history all come back as an empty sequence.
func (s *Store) Load(ctx context.Context) []Message {
	msgs, err := s.load(ctx)
	if err != nil {
		var mh *MalformedHistoryError
		if errors.As(err, &mh) {
			log.Warn().Err(err).Str("key", s.key).Msg("discarding corrupt chat history")
		} else {
			log.Error().Err(err).Str("key", s.key).Msg("error loading chat history")
		}
		return []Message{}
	}
	return msgs
}

func (s *Store) load(ctx context.Context) ([]Message, error) {
	data, err := s.backend.Load(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, &MalformedHistoryError{Err: err}
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}

// Restore makes the persisted conversation current, seeding the welcome
// message when there is nothing to restore.
func (s *Store) Restore(ctx context.Context) []Message {
	msgs := s.Load(ctx)
	if len(msgs) == 0 {
		msgs = []Message{NewWelcomeMessage(s.welcome, s.now())}
	}
	s.mu.Lock()
	s.messages = msgs
	out := s.snapshotLocked()
	s.mu.Unlock()
	return out
}

// Append adds msg at the end and persists the new sequence. A failed write is
// logged and does not undo the append.
func (s *Store) Append(ctx context.Context, msg Message) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg.clone())
	out := s.snapshotLocked()
	if err := s.Persist(ctx, out); err != nil {
		log.Error().Err(err).Str("key", s.key).Msg("error saving chat history")
	}
	return out
}

// Persist writes seq to the durable store.
func (s *Store) Persist(ctx context.Context, seq []Message) error {
	data, err := json.Marshal(seq)
	if err != nil {
		return &PersistenceError{Op: "encode", Err: err}
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// Clear resets the conversation to a fresh welcome message and erases the
// durable copy.
func (s *Store) Clear(ctx context.Context) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []Message{NewWelcomeMessage(s.welcome, s.now())}
	if err := s.backend.Clear(ctx, s.key); err != nil {
		log.Error().Err(&PersistenceError{Op: "clear", Err: err}).Str("key", s.key).Msg("error clearing chat history")
	}
	return s.snapshotLocked()
}

func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) snapshotLocked() []Message {
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.clone()
	}
	return out
}
