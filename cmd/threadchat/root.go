package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/boat-builder/threadchat"
	"github.com/boat-builder/threadchat/config"
	"github.com/boat-builder/threadchat/llm"
)

// Version is set at build time.
var Version = "0.1.0"

type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	closeLog   func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "threadchat",
		Short:        "Chat with an OpenAI assistant over persistent threads",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger, a.closeLog = config.SetupLogger(cfg.LogFile, config.ParseLogLevel(cfg.LogLevel))
			slog.SetDefault(a.logger)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(newServeCmd(a), newChatCmd(a))
	return rootCmd
}

// newGenerator builds a Generator on the OpenAI Assistants API.
func (a *app) newGenerator() (*threadchat.Generator, error) {
	if err := a.cfg.ValidateGenerator(); err != nil {
		return nil, err
	}
	llmConfig := llm.LLMConfig{
		APIKey:      a.cfg.OpenAIAPIKey,
		BaseURL:     a.cfg.OpenAIBaseURL,
		AssistantID: a.cfg.AssistantID,
		MaxRetries:  a.cfg.MaxRetries,
	}
	return threadchat.NewGenerator(
		llmConfig.NewLLMClient(),
		threadchat.WithPollConfig(a.cfg.PollConfig()),
		threadchat.WithGeneratorLogger(a.logger),
	), nil
}

// openStore opens the configured Storage. The returned function releases it.
func (a *app) openStore(ctx context.Context) (threadchat.Storage, func() error, error) {
	if err := a.cfg.ValidateStore(); err != nil {
		return nil, nil, err
	}
	noop := func() error { return nil }

	switch a.cfg.Store {
	case config.StoreMemory:
		return threadchat.NewMemoryStorage(), noop, nil
	case config.StoreSQLite:
		s, err := threadchat.NewSQLiteStorage(a.cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := threadchat.NewPostgresStorage(a.cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreRedis:
		s, err := threadchat.NewRedisStorage(ctx, a.cfg.RedisAddr, "threadchat:")
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", a.cfg.Store)
}
