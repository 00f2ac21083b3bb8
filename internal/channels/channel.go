// Package channels provides the platform abstraction the bot runs on.
// A channel receives updates from a messaging platform, turns them into
// dispatcher events and delivers the replies.
package channels

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// Channel is a messaging platform the bot is reachable on.
type Channel interface {
	Name() string
	// Start connects and begins receiving updates in the background.
	Start(ctx context.Context) error
	// Stop disconnects and waits, bounded by ctx, for the receive loop to exit.
	Stop(ctx context.Context) error
	IsRunning() bool
	// IsAllowed reports whether senderID ("id" or "id|username") may talk to the bot.
	IsAllowed(senderID string) bool
}

// BaseChannel carries the state every channel shares. Embed it.
type BaseChannel struct {
	name      string
	running   atomic.Bool
	allowList []string
}

func NewBaseChannel(name string, allowList []string) *BaseChannel {
	return &BaseChannel{name: name, allowList: allowList}
}

func (c *BaseChannel) Name() string { return c.name }
func (c *BaseChannel) IsRunning() bool { return c.running.Load() }
func (c *BaseChannel) SetRunning(running bool) { c.running.Store(running) }

// IsAllowed checks senderID against the allowlist. An empty list lets
// everyone through.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}
	id, user, _ := strings.Cut(senderID, "|")
	for _, entry := range c.allowList {
		if matchesSender(entry, id, user) {
			return true
		}
	}
	return false
}

// matchesSender compares one allowlist entry ("123", "@alice", "alice" or
// "123|alice") with a sender. Usernames only match when the sender has one.
func matchesSender(entry, id, user string) bool {
	entry = strings.TrimPrefix(entry, "@")
	entryID, entryUser, compound := strings.Cut(entry, "|")
	if entryID == id {
		return true
	}
	if user == "" {
		return false
	}
	if compound {
		return entryUser == user
	}
	return entry == user
}

// Truncate shortens a string to maxLen bytes without splitting a rune,
// appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
