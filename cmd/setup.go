package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nextlevelbuilder/modebot/internal/completion"
	"github.com/nextlevelbuilder/modebot/internal/config"
	"github.com/nextlevelbuilder/modebot/internal/dispatcher"
	"github.com/nextlevelbuilder/modebot/internal/modes"
	"github.com/nextlevelbuilder/modebot/internal/sessions"
)

// setupLogging installs the default slog handler. -v forces debug level.
func setupLogging(w io.Writer, lc config.LogConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// mustLoadConfig loads and validates config, exiting on any error.
// Logging is configured from the loaded config before returning.
func mustLoadConfig(logOut io.Writer) *config.Config {
	setupLogging(logOut, config.LogConfig{})

	cfgPath, secPath := resolveConfigPath(), resolveSecretsPath()
	cfg, err := config.Load(cfgPath, secPath)
	if err != nil {
		slog.Error("failed to load config", "config", cfgPath, "secrets", secPath, "error", err)
		os.Exit(1)
	}
	setupLogging(logOut, cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	return cfg
}

// buildDispatcher opens the session store and wires the completion client.
// The caller owns the returned store.
func buildDispatcher(ctx context.Context, cfg *config.Config) (*dispatcher.Dispatcher, sessions.Store, error) {
	store, err := sessions.Open(ctx, cfg.Sessions)
	if err != nil {
		return nil, nil, err
	}

	client := completion.NewOpenAIClient(cfg.Completion)
	slog.Info("completion client ready", "api", client.API(), "model", client.Model(), "session_backend", cfg.Sessions.Backend)

	d, err := dispatcher.New(dispatcher.Options{
		Modes:         modes.Default(),
		Store:         store,
		Completer:     completion.Traced(client, completion.Attributes(client)...),
		BotName:       cfg.Telegram.BotName,
		FallbackReply: cfg.Completion.FallbackReply,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return d, store, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
