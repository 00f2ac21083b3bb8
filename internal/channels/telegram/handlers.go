package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/modebot/internal/channels"
	"github.com/nextlevelbuilder/modebot/internal/dispatcher"
	"github.com/nextlevelbuilder/modebot/internal/sessions"
)

// maxMessageLen is Telegram's limit on a single text message, in characters.
const maxMessageLen = 4096

// handleMessage converts one incoming message and hands it to the dispatcher.
func (c *Channel) handleMessage(ctx context.Context, message *telego.Message) {
	user := message.From
	if user == nil {
		return
	}
	// Photos, stickers, service messages and the like carry no text.
	if message.Text == "" {
		slog.Debug("telegram non-text message skipped", "chat_id", message.Chat.ID, "user_id", user.ID)
		return
	}

	userID := strconv.FormatInt(user.ID, 10)
	senderID := userID
	if user.Username != "" {
		senderID = fmt.Sprintf("%s|%s", userID, user.Username)
	}
	if !c.IsAllowed(senderID) {
		slog.Debug("telegram message rejected by allowlist", "user_id", userID, "username", user.Username)
		return
	}

	ev, ok := eventFromMessage(message, c.botUsername, c.scope)
	if !ok {
		slog.Debug("telegram command ignored", "chat_id", message.Chat.ID, "text_preview", channels.Truncate(message.Text, 60))
		return
	}
	ev.RequestID = uuid.NewString()[:8]

	slog.Debug("telegram message received",
		"request_id", ev.RequestID,
		"kind", ev.Kind,
		"chat_type", message.Chat.Type,
		"chat_id", message.Chat.ID,
		"user_id", user.ID,
		"username", user.Username,
		"text_preview", channels.Truncate(message.Text, 60),
	)

	if ev.Kind == dispatcher.KindText {
		typing := tu.ChatAction(tu.ID(message.Chat.ID), telego.ChatActionTyping)
		if err := c.api.SendChatAction(ctx, typing); err != nil {
			slog.Debug("telegram typing action failed", "request_id", ev.RequestID, "error", err)
		}
	}

	r := &chatReplier{api: c.api, chatID: message.Chat.ID}
	if err := c.handler.Handle(ctx, ev, r); err != nil {
		slog.Error("telegram reply failed",
			"request_id", ev.RequestID, "chat_id", message.Chat.ID, "error", err)
	}
}

// eventFromMessage maps a text message onto a dispatcher event. ok is false
// for commands the bot does not handle or that address another bot.
func eventFromMessage(message *telego.Message, botUsername string, scope sessions.ScopeKind) (dispatcher.Event, bool) {
	user := message.From
	id := user.ID
	if scope == sessions.ScopeChat {
		id = message.Chat.ID
	} else {
		scope = sessions.ScopeUser
	}
	ev := dispatcher.Event{
		SessionID: sessions.BuildSessionKey(channelName, scope, strconv.FormatInt(id, 10)),
		UserName:  displayName(user),
	}

	cmd, args, isCommand := channels.ParseCommand(message.Text, botUsername)
	if !isCommand {
		ev.Kind = dispatcher.KindText
		ev.Text = message.Text
		return ev, true
	}

	switch cmd {
	case "start":
		ev.Kind = dispatcher.KindStart
	case "mode":
		ev.Kind = dispatcher.KindMode
		ev.Args = args
	case "help":
		ev.Kind = dispatcher.KindHelp
	default:
		return dispatcher.Event{}, false
	}
	return ev, true
}

func displayName(u *telego.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "there"
}

// chatReplier sends replies to one chat, splitting long texts.
type chatReplier struct {
	api    botAPI
	chatID int64
}

func (r *chatReplier) Reply(ctx context.Context, text string) error {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		if _, err := r.api.SendMessage(ctx, tu.Message(tu.ID(r.chatID), chunk)); err != nil {
			return fmt.Errorf("send message to %d: %w", r.chatID, err)
		}
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit characters, preferring
// to break after a newline, then after a space.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		if i := lastIndexRune(runes[:limit], '\n'); i > limit/2 {
			cut = i + 1
		} else if i := lastIndexRune(runes[:limit], ' '); i > limit/2 {
			cut = i + 1
		}
		chunks = appendChunk(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return appendChunk(chunks, string(runes))
}

// appendChunk drops trailing newlines and skips chunks Telegram would reject
// as empty.
func appendChunk(chunks []string, chunk string) []string {
	chunk = strings.TrimRight(chunk, "\n")
	if strings.TrimSpace(chunk) == "" {
		return chunks
	}
	return append(chunks, chunk)
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
