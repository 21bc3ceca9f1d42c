package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"chat-widget/internal/analytics"
	"chat-widget/internal/chatapi"
	"chat-widget/internal/config"
	"chat-widget/internal/history"
	"chat-widget/internal/llm"
	"chat-widget/internal/scheduler"
	"chat-widget/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Warn().Err(err).Msg(".env file not found")
	}

	cfg := config.New()
	setupLogging(cfg.LogLevel)

	client, err := llm.NewFactory(cfg).CreateClient(cfg.LLMProvider, cfg.OpenAIModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create llm client")
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

	api := chatapi.New(client, history.NewManager(), chatapi.Options{
		SystemPrompt:          readSystemPrompt(cfg.SystemPromptPath),
		FallbackMessage:       cfg.FallbackMessage,
		MaxConversationLength: cfg.MaxConversationLength,
		ResponseTimeout:       cfg.ResponseTimeout,
		AllowedOrigins:        cfg.AllowedOrigins,
		Recorder:              rec,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched := scheduler.New(cfg.ReportSchedule)
	if rec != nil {
		sched.SetReportFunction(dailyReport(rec))
	}
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.ReportSchedule).Msg("failed to start scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", cfg.ListenAddr).
			Str("provider", string(cfg.LLMProvider)).
			Str("model", cfg.OpenAIModel).
			Msg("chat server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sched.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("chat server stopped with error")
	}
	log.Info().Msg("chat server stopped")
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if lvl > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

func readSystemPrompt(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("system prompt file not found or unreadable")
		return ""
	}
	return strings.TrimSpace(string(data))
}

// dailyReport logs the statistics of the current UTC day.
func dailyReport(rec storage.Recorder) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		events, err := rec.LoadInteractions()
		if err != nil {
			return err
		}
		stats := analytics.AnalyzeDailyLogs(events, time.Now().UTC())
		log.Info().
			Str("date", stats.Date).
			Int("exchanges", stats.TotalExchanges).
			Int("unique_chats", stats.UniqueChats).
			Int("failed", stats.FailedExchanges).
			Msg(stats.Summary())
		return nil
	}
}
