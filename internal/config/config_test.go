package config

import (
	"testing"
	"time"

	"chat-widget/internal/conversation"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChatID != "main-chat" {
		t.Fatalf("unexpected chat id: %q", cfg.ChatID)
	}
	if cfg.WelcomeMessage != conversation.DefaultWelcomeMessage {
		t.Fatalf("welcome default mismatch: %q", cfg.WelcomeMessage)
	}
	if cfg.ErrorMessage != conversation.DefaultErrorMessage {
		t.Fatalf("error default mismatch: %q", cfg.ErrorMessage)
	}
	if cfg.FallbackMessage != DefaultFallbackMessage {
		t.Fatalf("fallback default mismatch: %q", cfg.FallbackMessage)
	}
	if cfg.RequestTimeout != 0 {
		t.Fatalf("request timeout must default to none, got %s", cfg.RequestTimeout)
	}
	if cfg.MaxConversationLength != 20 {
		t.Fatalf("unexpected max length: %d", cfg.MaxConversationLength)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", "bolt")
	t.Setenv("REQUEST_TIMEOUT", "15s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example,https://c.example")
	t.Setenv("LLM_PROVIDER", "yandex")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HistoryBackend != "bolt" {
		t.Fatalf("backend not overridden: %q", cfg.HistoryBackend)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("timeout not parsed: %s", cfg.RequestTimeout)
	}
	if len(cfg.AllowedOrigins) != 3 || cfg.AllowedOrigins[2] != "https://c.example" {
		t.Fatalf("origins not split: %v", cfg.AllowedOrigins)
	}
	if cfg.LLMProvider != ProviderYandex {
		t.Fatalf("provider not overridden: %q", cfg.LLMProvider)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("RESPONSE_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadMessageOverrides(t *testing.T) {
	t.Setenv("WELCOME_MESSAGE", "hello")
	t.Setenv("ERROR_MESSAGE", "oops")
	t.Setenv("FALLBACK_MESSAGE", "try again")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WelcomeMessage != "hello" || cfg.ErrorMessage != "oops" || cfg.FallbackMessage != "try again" {
		t.Fatalf("messages not overridden: %q %q %q", cfg.WelcomeMessage, cfg.ErrorMessage, cfg.FallbackMessage)
	}
}
