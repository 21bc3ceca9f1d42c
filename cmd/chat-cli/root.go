package main

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"chat-widget/internal/config"
	"chat-widget/internal/conversation"
	"chat-widget/internal/storage"
	"chat-widget/internal/transport"
	"chat-widget/internal/widget"
)

type rootFlags struct {
	chatID   string
	endpoint string
	backend  string
	logLevel string
	newChat  bool
}

// app is what every subcommand works with once flags and env are resolved.
type app struct {
	cfg      *config.Config
	chatID   string
	backend  storage.Store
	recorder storage.Recorder
	widget   *widget.Widget
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	var a *app

	root := &cobra.Command{
		Use:           "chat-cli",
		Short:         "Terminal client for the project management chat assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load(".env")
			cfg, err := config.Load()
			if err != nil {
				return errors.Wrap(err, "failed to parse config")
			}
			level := cfg.LogLevel
			if flags.logLevel != "" {
				level = flags.logLevel
			}
			setupLogging(level)
			if cmd.Annotations["offline"] == "true" {
				a = &app{cfg: cfg}
				return nil
			}
			a, err = newApp(cmd.Context(), cfg, flags)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil || a.backend == nil {
				return nil
			}
			return a.backend.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.chatID, "chat-id", "", "conversation id sent with every message (default $CHAT_ID)")
	pf.StringVar(&flags.endpoint, "endpoint", "", "chat endpoint URL (default $CHAT_ENDPOINT)")
	pf.StringVar(&flags.backend, "backend", "", "history backend: memory, file, bolt, redis or sqlite (default $HISTORY_BACKEND)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (default $LOG_LEVEL)")
	pf.BoolVar(&flags.newChat, "new-chat", false, "start a conversation with a fresh random chat id")

	root.AddCommand(
		newSendCmd(func() *app { return a }),
		newHistoryCmd(func() *app { return a }),
		newClearCmd(func() *app { return a }),
		newFormatCmd(),
		newStatsCmd(func() *app { return a }),
	)
	return root
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func newApp(ctx context.Context, cfg *config.Config, flags *rootFlags) (*app, error) {
	chatID := cfg.ChatID
	if flags.chatID != "" {
		chatID = flags.chatID
	}
	if flags.newChat {
		chatID = uuid.NewString()
	}
	endpoint := cfg.ChatEndpoint
	if flags.endpoint != "" {
		endpoint = flags.endpoint
	}
	backendName := cfg.HistoryBackend
	if flags.backend != "" {
		backendName = flags.backend
	}

	backend, err := storage.Open(ctx, storage.Options{
		Backend:       backendName,
		Dir:           cfg.HistoryDir,
		BoltPath:      cfg.BoltPath,
		SQLitePath:    cfg.SQLitePath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisPrefix:   "chat-widget:",
		RedisTTL:      cfg.RedisTTL,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s history backend", backendName)
	}

	var rec storage.Recorder
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.LogFilePath).Msg("failed to init file recorder")
		} else {
			rec = fr
		}
	}

	var opts []transport.Option
	if cfg.RequestTimeout > 0 {
		opts = append(opts, transport.WithTimeout(cfg.RequestTimeout))
	}
	client := transport.NewClient(endpoint, opts...)

	conv := conversation.NewStore(backend, historyKey(cfg, chatID), cfg.WelcomeMessage)
	conv.Restore(ctx)

	w := widget.New(conv, client, widget.Options{
		ChatID:       chatID,
		ErrorMessage: cfg.ErrorMessage,
		Recorder:     rec,
	})
	log.Debug().Str("chat_id", chatID).Str("backend", backendName).Str("endpoint", endpoint).Msg("widget ready")

	return &app{cfg: cfg, chatID: chatID, backend: backend, recorder: rec, widget: w}, nil
}

// historyKey keeps the configured key for the configured chat and suffixes
// it for any other chat id.
func historyKey(cfg *config.Config, chatID string) string {
	if chatID == cfg.ChatID {
		return cfg.HistoryKey
	}
	return cfg.HistoryKey + "-" + chatID
}
