package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/titanous/json5"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore: MODEBOT_COMPLETION__MODEL -> completion.model.
const EnvPrefix = "MODEBOT_"

// legacyKeys maps the flat keys of the two-file config.yaml / secrets.yaml
// layout onto the nested schema.
var legacyKeys = map[string]string{
	"telegram_bot_token": "telegram.token",
	"bot_name":           "telegram.bot_name",
	"openai_api_key":     "completion.api_key",
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout:  30,
			SessionScope: ScopeUser,
		},
		Completion: CompletionConfig{
			API:         APICompletions,
			Model:       "gpt-3.5-turbo-instruct",
			MaxTokens:   50,
			Temperature: 0.5,
			Timeout:     "30s",
		},
		Sessions: SessionsConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "modebot:session:",
			},
			SQLite: SQLiteConfig{
				Path: "modebot.db",
			},
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "modebot",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config file and the secrets file (both key-value sources,
// YAML or JSON5 by extension), then overlays env vars. An empty path skips
// that source; a path that does not exist is an error.
func Load(configPath, secretsPath string) (*Config, error) {
	k := koanf.New(".")

	for _, src := range []struct{ kind, path string }{
		{"config", configPath},
		{"secrets", secretsPath},
	} {
		if src.path == "" {
			continue
		}
		if err := loadFile(k, src.path); err != nil {
			return nil, fmt.Errorf("%s: %w", src.kind, err)
		}
	}

	for legacy, key := range legacyKeys {
		if k.Exists(legacy) && !k.Exists(key) {
			if err := k.Set(key, k.Get(legacy)); err != nil {
				return nil, fmt.Errorf("map %s: %w", legacy, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		return JSON5Parser()
	default:
		return yaml.Parser()
	}
}

// applyEnvOverrides honours the conventional unprefixed variable names.
// They only fill values the files and MODEBOT_* vars left empty.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" && *dst == "" {
			*dst = v
		}
	}
	envStr("TELEGRAM_BOT_TOKEN", &c.Telegram.Token)
	envStr("OPENAI_API_KEY", &c.Completion.APIKey)
	envStr("OPENAI_BASE_URL", &c.Completion.APIBase)
}

// json5Parser lets koanf read JSON5 config files.
type json5Parser struct{}

// JSON5Parser returns a koanf.Parser for JSON5 documents.
func JSON5Parser() koanf.Parser { return json5Parser{} }

func (json5Parser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := json5.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (json5Parser) Marshal(o map[string]interface{}) ([]byte, error) {
	return json.MarshalIndent(o, "", "  ")
}
