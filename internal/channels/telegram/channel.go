package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/modebot/internal/channels"
	"github.com/nextlevelbuilder/modebot/internal/config"
	"github.com/nextlevelbuilder/modebot/internal/dispatcher"
	"github.com/nextlevelbuilder/modebot/internal/sessions"
)

const (
	channelName     = "telegram"
	stopWaitTimeout = 10 * time.Second
)

// Handler processes one converted event. *dispatcher.Dispatcher implements it.
type Handler interface {
	Handle(ctx context.Context, ev dispatcher.Event, r dispatcher.Replier) error
}

// botAPI is the subset of *telego.Bot the update loop needs to reply.
type botAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendChatAction(ctx context.Context, params *telego.SendChatActionParams) error
}

// Channel connects to Telegram via the Bot API using long polling.
type Channel struct {
	*channels.BaseChannel
	bot         *telego.Bot
	api         botAPI
	config      config.TelegramConfig
	handler     Handler
	botUsername string
	scope       sessions.ScopeKind
	pollCancel  context.CancelFunc // cancels the long polling context
	pollDone    chan struct{}      // closed when polling goroutine exits
}

// New creates a new Telegram channel from config. Events are passed to h one
// at a time in arrival order.
func New(cfg config.TelegramConfig, h Handler) (*Channel, error) {
	var opts []telego.BotOption

	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Channel{
		BaseChannel: channels.NewBaseChannel(channelName, cfg.AllowFrom),
		bot:         bot,
		api:         bot,
		config:      cfg,
		handler:     h,
		scope:       sessions.ScopeKind(cfg.SessionScope),
	}, nil
}

// Start begins long polling for Telegram updates.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting telegram bot (polling mode)")

	// Stop() cancels this context to shut down long polling.
	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	timeout := c.config.PollTimeout
	if timeout <= 0 {
		timeout = 30
	}
	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        timeout,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		close(c.pollDone)
		return fmt.Errorf("start long polling: %w", err)
	}

	c.botUsername = c.bot.Username()
	c.SetRunning(true)
	slog.Info("telegram bot connected", "username", c.botUsername)

	go c.syncMenuWithRetry(pollCtx)

	go func() {
		defer close(c.pollDone)
		c.pollLoop(pollCtx, updates)
		c.SetRunning(false)
	}()

	return nil
}

// pollLoop handles updates sequentially until ctx ends or the feed closes.
func (c *Channel) pollLoop(ctx context.Context, updates <-chan telego.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				slog.Info("telegram updates channel closed")
				return
			}
			if update.Message == nil {
				slog.Debug("telegram update skipped (no message)", "update_id", update.UpdateID)
				continue
			}
			c.handleMessage(ctx, update.Message)
		}
	}
}

// Stop shuts down the Telegram bot by cancelling the long polling context
// and waiting for the polling goroutine to exit.
func (c *Channel) Stop(ctx context.Context) error {
	slog.Info("stopping telegram bot")
	c.SetRunning(false)

	if c.pollCancel != nil {
		c.pollCancel()
	}

	// Telegram holds the getUpdates lock until the poll returns.
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
			slog.Info("telegram bot stopped")
		case <-ctx.Done():
			slog.Warn("telegram stop interrupted", "error", ctx.Err())
		case <-time.After(stopWaitTimeout):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}

	return nil
}
