// Session keys identify whose mode selection is being read or written:
//
//	{channel}:{kind}:{id}
//
// Examples:
//
//	telegram:user:386246614
//	telegram:chat:-100123456
//	cli:user:local

package sessions

import (
	"fmt"
	"strings"
)

// ScopeKind says whether a session follows a user or a chat.
type ScopeKind string

const (
	// ScopeUser keys state by the sender, across every chat they talk in.
	ScopeUser ScopeKind = "user"
	// ScopeChat keys state by the conversation.
	ScopeChat ScopeKind = "chat"
)

// BuildSessionKey builds the canonical session key.
func BuildSessionKey(channel string, kind ScopeKind, id string) string {
	return fmt.Sprintf("%s:%s:%s", channel, kind, id)
}

// ParseSessionKey splits a canonical key. ok is false when the key is not in
// the expected format.
func ParseSessionKey(key string) (channel string, kind ScopeKind, id string, ok bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 || parts[0] == "" || parts[2] == "" {
		return "", "", "", false
	}
	switch ScopeKind(parts[1]) {
	case ScopeUser, ScopeChat:
	default:
		return "", "", "", false
	}
	return parts[0], ScopeKind(parts[1]), parts[2], true
}
