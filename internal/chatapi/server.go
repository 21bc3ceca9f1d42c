// Package chatapi serves the chat endpoint the widget talks to.
package chatapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"chat-widget/internal/config"
	"chat-widget/internal/history"
	"chat-widget/internal/llm"
	"chat-widget/internal/storage"
)

const defaultChatID = "default"

type Options struct {
	SystemPrompt          string
	FallbackMessage       string
	MaxConversationLength int
	ResponseTimeout       time.Duration
	AllowedOrigins        []string
	Recorder              storage.Recorder
}

type Server struct {
	llm     llm.Client
	history *history.Manager
	opts    Options
	now     func() time.Time
}

func New(client llm.Client, h *history.Manager, opts Options) *Server {
	if h == nil {
		h = history.NewManager()
	}
	if opts.FallbackMessage == "" {
		opts.FallbackMessage = config.DefaultFallbackMessage
	}
	return &Server{llm: client, history: h, opts: opts, now: time.Now}
}

type chatRequest struct {
	Message *string `json:"message"`
	ChatID  string  `json:"chat_id"`
}

type chatResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	ChatID  string `json:"chat_id"`
}

// Handler builds the gin engine with every route and middleware attached.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(requestLogger(), gin.CustomRecovery(recoverJSON), cors(s.opts.AllowedOrigins))

	api := r.Group("/api")
	{
		api.POST("/chat", s.chat)
		api.GET("/health", s.health)
		api.POST("/clear-chat/:chat_id", s.clearChat)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return r
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == nil || strings.TrimSpace(*req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No message provided"})
		return
	}
	chatID := req.ChatID
	if chatID == "" {
		chatID = defaultChatID
	}
	message := *req.Message

	reply, ok := s.answer(c.Request.Context(), chatID, message)

	s.history.AppendUser(chatID, message)
	s.history.AppendAssistant(chatID, reply)
	s.history.Trim(chatID, s.opts.MaxConversationLength)
	s.record(chatID, message, reply, ok)

	c.JSON(http.StatusOK, chatResponse{Message: reply, Success: ok, ChatID: chatID})
}

// answer asks the model for a reply. A failed generation yields the
// fallback text and false.
func (s *Server) answer(ctx context.Context, chatID, message string) (string, bool) {
	msgs := make([]llm.Message, 0, 2+s.opts.MaxConversationLength)
	if s.opts.SystemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: s.opts.SystemPrompt})
	}
	msgs = append(msgs, s.history.Get(chatID)...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	if s.opts.ResponseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ResponseTimeout)
		defer cancel()
	}

	start := s.now()
	resp, err := s.llm.Generate(ctx, msgs)
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("llm generation failed")
		return s.opts.FallbackMessage, false
	}
	if strings.TrimSpace(resp.Content) == "" {
		log.Warn().Str("chat_id", chatID).Msg("llm returned empty content")
		return s.opts.FallbackMessage, false
	}
	log.Debug().
		Str("chat_id", chatID).
		Str("model", resp.Model).
		Int("total_tokens", resp.TotalTokens).
		Dur("took", s.now().Sub(start)).
		Msg("llm reply")
	return resp.Content, true
}

func (s *Server) record(chatID, message, reply string, ok bool) {
	if s.opts.Recorder == nil {
		return
	}
	ev := storage.Event{
		Timestamp:   s.now().UTC(),
		ChatID:      chatID,
		UserMessage: message,
		BotResponse: reply,
		Success:     ok,
	}
	if err := s.opts.Recorder.AppendInteraction(ev); err != nil {
		log.Warn().Err(err).Str("chat_id", chatID).Msg("failed to record exchange")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"api":    "operational",
		"chats":  s.history.Len(),
	})
}

func (s *Server) clearChat(c *gin.Context) {
	chatID := c.Param("chat_id")
	s.history.Reset(chatID)
	log.Info().Str("chat_id", chatID).Msg("chat cleared")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Chat %s cleared successfully", chatID),
	})
}
