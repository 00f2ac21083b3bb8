package config

// Session scopes for TelegramConfig.SessionScope.
const (
	ScopeUser = "user"
	ScopeChat = "chat"
)

// TelegramConfig holds the bot identity and transport settings.
type TelegramConfig struct {
	Token        string   `json:"token" koanf:"token"`
	BotName      string   `json:"bot_name" koanf:"bot_name"`
	Proxy        string   `json:"proxy,omitempty" koanf:"proxy"`
	AllowFrom    []string `json:"allow_from,omitempty" koanf:"allow_from"`       // ids or @usernames; empty = everyone
	PollTimeout  int      `json:"poll_timeout,omitempty" koanf:"poll_timeout"`   // long polling timeout in seconds (default 30)
	SessionScope string   `json:"session_scope,omitempty" koanf:"session_scope"` // "user" (default): mode follows the sender; "chat": shared per chat
}
