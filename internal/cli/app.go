package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Muistio/Henry-agent/internal/config"
	"github.com/Muistio/Henry-agent/internal/domain"
	"github.com/Muistio/Henry-agent/internal/embedding"
	embopenai "github.com/Muistio/Henry-agent/internal/embedding/openai"
	"github.com/Muistio/Henry-agent/internal/embedding/tfidf"
	llmopenai "github.com/Muistio/Henry-agent/internal/llm/openai"
	"github.com/Muistio/Henry-agent/internal/loader"
	"github.com/Muistio/Henry-agent/internal/service"
	"github.com/Muistio/Henry-agent/internal/session"
	"github.com/Muistio/Henry-agent/internal/summarizer"
	"github.com/Muistio/Henry-agent/internal/vectorstore/memory"
)

// app holds the assembled components for one command invocation.
type app struct {
	cfg    *config.AppConfig
	logger *slog.Logger
	agent  *service.AgentService
	closer io.Closer
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

// newApp loads the configuration and wires a fresh session. Logs go to
// logOut unless the config names a log file.
func newApp(logOut io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, closer, err := newLogger(cfg.Log, verbose, logOut)
	if err != nil {
		return nil, err
	}

	chat := newChatModel(cfg, logger)
	emb := newEmbedder(cfg, logger)

	aboutMe := ""
	if cfg.Agent.AboutMePath != "" {
		aboutMe, err = loader.ReadFile(cfg.Agent.AboutMePath)
		if err != nil {
			logger.Warn("about me document not loaded", slog.String("path", cfg.Agent.AboutMePath), slog.Any("error", err))
		}
	}

	store := memory.NewStorage(
		memory.WithMaxChars(cfg.Store.MaxChunkChars),
		memory.WithSentinelDim(cfg.Store.SentinelDim),
		memory.WithLogger(logger),
	)
	sess := session.New(store)
	agent := service.NewAgentService(sess, chat, emb, summarizer.NewFrequencySummarizer(), service.Options{
		TopK:             cfg.Store.TopK,
		Temperature:      cfg.Chat.Temperature,
		SummarySentences: cfg.Summarizer.MaxSentences,
		AboutMe:          aboutMe,
		Documents:        cfg.Agent.Documents,
		Logger:           logger,
	})
	return &app{cfg: cfg, logger: logger, agent: agent, closer: closer}, nil
}

// resolveKey prefers --api-key over the configured environment variable.
func resolveKey(envName string) string {
	if apiKey != "" {
		return apiKey
	}
	return strings.TrimSpace(os.Getenv(envName))
}

func newChatModel(cfg *config.AppConfig, logger *slog.Logger) domain.ChatModel {
	if cfg.Chat.Provider != "openai" {
		return nil
	}
	o := cfg.Chat.OpenAI
	m, err := llmopenai.New(llmopenai.Config{
		APIKey:     resolveKey(o.APIKeyEnv),
		BaseURL:    o.BaseURL,
		Model:      cfg.Chat.Model,
		Timeout:    time.Duration(o.TimeoutSecs) * time.Second,
		MaxRetries: o.MaxRetries,
		Logger:     logger,
	})
	if err != nil {
		logger.Info("chat model disabled, answers use local demo mode", slog.Any("error", err))
		return nil
	}
	return m
}

func newEmbedder(cfg *config.AppConfig, logger *slog.Logger) embedding.Embedder {
	switch cfg.Embedder.Type {
	case "tfidf":
		return tfidf.NewEmbedder()
	case "openai":
		o := cfg.Embedder.OpenAI
		c, err := embopenai.NewClient(embopenai.Config{
			APIKey:            resolveKey(o.APIKeyEnv),
			BaseURL:           o.BaseURL,
			Model:             o.Model,
			Timeout:           time.Duration(o.TimeoutSecs) * time.Second,
			MaxRetries:        o.MaxRetries,
			RequestsPerSecond: o.RequestsPerSecond,
			Burst:             o.Burst,
			Logger:            logger,
		})
		if err != nil {
			logger.Info("embeddings disabled, search uses keywords", slog.Any("error", err))
			return nil
		}
		return c
	default:
		return nil
	}
}
