package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/modebot/internal/channels"
	"github.com/nextlevelbuilder/modebot/internal/channels/telegram"
	"github.com/nextlevelbuilder/modebot/internal/tracing"
)

const (
	shutdownTimeout      = 15 * time.Second
	channelWatchInterval = 5 * time.Second
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the Telegram bot (default command)",
		Run: func(cmd *cobra.Command, args []string) {
			runBot()
		},
	}
}

func runBot() {
	cfg := mustLoadConfig(os.Stdout)
	if err := cfg.ValidateTelegram(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}

	d, store, err := buildDispatcher(ctx, cfg)
	if err != nil {
		slog.Error("failed to build dispatcher", "backend", cfg.Sessions.Backend, "error", err)
		os.Exit(1)
	}

	tg, err := telegram.New(cfg.Telegram, d)
	if err != nil {
		store.Close()
		slog.Error("failed to create telegram channel", "error", err)
		os.Exit(1)
	}

	channelMgr := channels.NewManager()
	channelMgr.RegisterChannel(tg.Name(), tg)

	if err := channelMgr.StartAll(ctx); err != nil {
		store.Close()
		slog.Error("failed to start channels", "error", err)
		os.Exit(1)
	}
	slog.Info("modebot running", "bot_name", cfg.Telegram.BotName, "channels", channelMgr.GetEnabledChannels())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return channelMgr.Watch(gctx, channelWatchInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("graceful shutdown initiated")

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return channelMgr.StopAll(stopCtx)
	})

	runErr := g.Wait()

	if err := store.Close(); err != nil {
		slog.Warn("session store close failed", "error", err)
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		slog.Warn("tracing shutdown failed", "error", err)
	}

	if runErr != nil {
		slog.Error("modebot stopped with error", "error", runErr)
		os.Exit(1)
	}
	slog.Info("modebot stopped")
}
