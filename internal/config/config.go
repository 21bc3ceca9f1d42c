package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/rs/zerolog/log"

	"chat-widget/internal/conversation"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

// DefaultFallbackMessage is what the chat service answers when the model fails.
const DefaultFallbackMessage = "I’m sorry—something went wrong. Could you rephrase?"

type Config struct {
	// Widget
	ChatEndpoint   string        `env:"CHAT_ENDPOINT" envDefault:"http://localhost:5000/api/chat"`
	ChatID         string        `env:"CHAT_ID" envDefault:"main-chat"`
	WelcomeMessage string        `env:"WELCOME_MESSAGE"`
	ErrorMessage   string        `env:"ERROR_MESSAGE"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"0s"`

	// History persistence
	HistoryBackend string        `env:"HISTORY_BACKEND" envDefault:"file"`
	HistoryKey     string        `env:"HISTORY_KEY" envDefault:"chatHistory"`
	HistoryDir     string        `env:"HISTORY_DIR" envDefault:"data/history"`
	BoltPath       string        `env:"BOLT_PATH" envDefault:"data/history.bolt"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"data/history.db"`
	RedisAddr      string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	RedisTTL       time.Duration `env:"REDIS_TTL" envDefault:"0s"`

	// Chat service
	ListenAddr            string        `env:"LISTEN_ADDR" envDefault:":5000"`
	AllowedOrigins        []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	MaxConversationLength int           `env:"MAX_CONVERSATION_LENGTH" envDefault:"20"`
	ResponseTimeout       time.Duration `env:"RESPONSE_TIMEOUT" envDefault:"30s"`
	FallbackMessage       string        `env:"FALLBACK_MESSAGE"`
	SystemPromptPath      string        `env:"SYSTEM_PROMPT_PATH" envDefault:"prompts/system_prompt.txt"`
	ReportSchedule        string        `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Exchange log shared by the widget and the service
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/log.jsonl"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.WelcomeMessage == "" {
		cfg.WelcomeMessage = conversation.DefaultWelcomeMessage
	}
	if cfg.ErrorMessage == "" {
		cfg.ErrorMessage = conversation.DefaultErrorMessage
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = DefaultFallbackMessage
	}
	return cfg, nil
}

func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse config")
	}
	return cfg
}
