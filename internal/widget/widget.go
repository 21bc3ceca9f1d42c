package widget

import (
	"context"
	"errors"
	"html"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"chat-widget/internal/conversation"
	"chat-widget/internal/formatter"
	"chat-widget/internal/storage"
	"chat-widget/internal/transport"
)

type State int32

const (
	StateIdle State = iota
	StateSending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyMessage = errors.New("widget: message is empty")
	ErrBusy         = errors.New("widget: a message is already being sent")
)

// Sender delivers one user message to the chat service.
type Sender interface {
	SendMessage(ctx context.Context, text, chatID string) (transport.Reply, error)
}

// Clearer is implemented by senders that can drop the remote conversation.
type Clearer interface {
	ClearChat(ctx context.Context, chatID string) error
}

// DefaultSuggestions are offered while only the welcome message is shown.
var DefaultSuggestions = []string{
	"Show me all active projects",
	"What is the status of JAIN-1B project?",
	"Show me progress of ELMGROVE-1B",
	"Show me the details of CABOT-1B project",
	"What selections are due this week?",
	"Show me pending walkthroughs",
	"What's the budget status for all projects?",
}

type Options struct {
	ChatID       string
	ErrorMessage string
	Recorder     storage.Recorder
	Formatter    *formatter.Formatter
	Suggestions  []string
	Now          func() time.Time
}

// Widget ties the conversation, the transport and the formatter together.
// At most one send is in flight; a send attempted meanwhile is rejected.
type Widget struct {
	conv        *conversation.Store
	sender      Sender
	chatID      string
	errorText   string
	recorder    storage.Recorder
	formatter   *formatter.Formatter
	suggestions []string
	now         func() time.Time
	state       atomic.Int32
}

func New(conv *conversation.Store, sender Sender, opts Options) *Widget {
	w := &Widget{
		conv:        conv,
		sender:      sender,
		chatID:      opts.ChatID,
		errorText:   opts.ErrorMessage,
		recorder:    opts.Recorder,
		formatter:   opts.Formatter,
		suggestions: opts.Suggestions,
		now:         opts.Now,
	}
	if w.errorText == "" {
		w.errorText = conversation.DefaultErrorMessage
	}
	if w.formatter == nil {
		w.formatter = formatter.New()
	}
	if w.suggestions == nil {
		w.suggestions = DefaultSuggestions
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

func (w *Widget) State() State   { return State(w.state.Load()) }
func (w *Widget) ChatID() string { return w.chatID }

func (w *Widget) Messages() []conversation.Message { return w.conv.Messages() }

// Send appends text as a user message, waits for the reply and appends it.
// Any transport failure becomes a bot message flagged IsError; the returned
// error is only ErrEmptyMessage or ErrBusy, in which case nothing happened.
func (w *Widget) Send(ctx context.Context, text string) ([]conversation.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if !w.state.CompareAndSwap(int32(StateIdle), int32(StateSending)) {
		return nil, ErrBusy
	}
	defer w.state.Store(int32(StateIdle))

	user := conversation.NewUserMessage(text, w.now())
	w.conv.Append(ctx, user)

	var bot conversation.Message
	reply, err := w.sender.SendMessage(ctx, text, w.chatID)
	if err != nil {
		log.Error().Err(err).Str("chat_id", w.chatID).Msg("chat request failed")
		bot = conversation.NewErrorMessage(w.errorText, w.now())
	} else {
		bot = conversation.NewBotMessage(reply.Message, reply.Success, w.now())
	}
	w.conv.Append(ctx, bot)
	w.record(user, bot)

	return []conversation.Message{user, bot}, nil
}

func (w *Widget) record(user, bot conversation.Message) {
	if w.recorder == nil {
		return
	}
	ev := storage.Event{
		Timestamp:   bot.Timestamp,
		ChatID:      w.chatID,
		UserMessage: user.Content,
		BotResponse: bot.Content,
		Success:     bot.Succeeded(),
		IsError:     bot.IsError,
	}
	if err := w.recorder.AppendInteraction(ev); err != nil {
		log.Warn().Err(err).Str("chat_id", w.chatID).Msg("failed to record exchange")
	}
}

// Clear resets the conversation to the welcome message and, when the sender
// supports it, asks the service to forget the chat too.
func (w *Widget) Clear(ctx context.Context) []conversation.Message {
	msgs := w.conv.Clear(ctx)
	if c, ok := w.sender.(Clearer); ok {
		if err := c.ClearChat(ctx, w.chatID); err != nil {
			log.Warn().Err(err).Str("chat_id", w.chatID).Msg("remote clear failed")
		}
	}
	return msgs
}

// Suggestions returns starter questions while the conversation holds only
// the welcome message, and nothing afterwards.
func (w *Widget) Suggestions() []string {
	if w.conv.Len() != 1 {
		return nil
	}
	return append([]string(nil), w.suggestions...)
}

// Rendered is a message prepared for display.
type Rendered struct {
	conversation.Message
	HTML    string
	Time    string
	Success bool
}

// Render formats every message: user text is escaped, bot markdown goes
// through the formatter.
func (w *Widget) Render() []Rendered {
	msgs := w.conv.Messages()
	out := make([]Rendered, 0, len(msgs))
	for _, m := range msgs {
		r := Rendered{Message: m, Time: m.Timestamp.Local().Format("15:04"), Success: m.Succeeded()}
		if m.Role == conversation.RoleUser {
			r.HTML = html.EscapeString(m.Content)
		} else {
			r.HTML = w.formatter.Format(m.Content)
		}
		out = append(out, r)
	}
	return out
}
