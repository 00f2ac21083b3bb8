package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"
)

const menuSyncAttempts = 3

// syncMenuWithRetry registers the menu commands, retrying with a growing delay.
func (c *Channel) syncMenuWithRetry(ctx context.Context) {
	commands := DefaultMenuCommands()
	for attempt := 1; attempt <= menuSyncAttempts; attempt++ {
		err := c.SyncMenuCommands(ctx, commands)
		if err == nil {
			slog.Info("telegram menu commands synced")
			return
		}
		slog.Warn("failed to sync telegram menu commands", "error", err, "attempt", attempt)
		if attempt < menuSyncAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt*5) * time.Second):
			}
		}
	}
}

// SyncMenuCommands registers bot commands with Telegram via setMyCommands.
func (c *Channel) SyncMenuCommands(ctx context.Context, commands []telego.BotCommand) error {
	if err := c.bot.DeleteMyCommands(ctx, nil); err != nil {
		slog.Debug("deleteMyCommands failed (may not exist)", "error", err)
	}

	if len(commands) == 0 {
		return nil
	}

	return c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: commands,
	})
}

// DefaultMenuCommands returns the bot menu commands.
func DefaultMenuCommands() []telego.BotCommand {
	return []telego.BotCommand{
		{Command: "start", Description: "Say hello"},
		{Command: "mode", Description: "Switch conversation mode: casual, professional, romantic"},
		{Command: "help", Description: "Show available commands"},
	}
}
