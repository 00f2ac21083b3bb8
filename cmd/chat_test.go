package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/modebot/internal/completion"
	"github.com/nextlevelbuilder/modebot/internal/dispatcher"
	"github.com/nextlevelbuilder/modebot/internal/sessions"
)

func TestChatEvent(t *testing.T) {
	tests := []struct {
		input string
		kind  dispatcher.Kind
		args  []string
		ok    bool
	}{
		{"hello there", dispatcher.KindText, nil, true},
		{"/start", dispatcher.KindStart, nil, true},
		{"/mode romantic", dispatcher.KindMode, []string{"romantic"}, true},
		{"/help", dispatcher.KindHelp, nil, true},
		{"/weather", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ev, ok := chatEvent(tt.input, "cli:user:t", "tester")
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if ev.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", ev.Kind, tt.kind)
			}
			if strings.Join(ev.Args, " ") != strings.Join(tt.args, " ") {
				t.Errorf("args = %v, want %v", ev.Args, tt.args)
			}
			if ev.SessionID != "cli:user:t" || ev.UserName != "tester" || len(ev.RequestID) != 8 {
				t.Errorf("event = %+v", ev)
			}
			if tt.kind == dispatcher.KindText && ev.Text != tt.input {
				t.Errorf("text = %q", ev.Text)
			}
		})
	}
}

func TestCheckSessionKey(t *testing.T) {
	for _, key := range []string{defaultChatSession, "telegram:user:386246614", "telegram:chat:-100123"} {
		if err := checkSessionKey(key); err != nil {
			t.Errorf("checkSessionKey(%q) = %v", key, err)
		}
	}
	for _, key := range []string{"", "local", "cli:group:1", "cli:user:"} {
		if err := checkSessionKey(key); err == nil {
			t.Errorf("checkSessionKey(%q) = nil, want error", key)
		}
	}
}

func TestChatLoop(t *testing.T) {
	var prompts []string
	completer := completion.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "ok", nil
	})
	d, err := dispatcher.New(dispatcher.Options{
		Store:     sessions.NewMemoryStore(),
		Completer: completer,
		BotName:   "ModeBot",
	})
	if err != nil {
		t.Fatalf("dispatcher.New: %v", err)
	}

	var replies []string
	out := dispatcher.ReplierFunc(func(_ context.Context, text string) error {
		replies = append(replies, text)
		return nil
	})

	in := strings.NewReader("/mode professional\n\n/weather\nhi\nquit\nnever read\n")
	chatLoop(context.Background(), in, d, out, defaultChatSession, "tester")

	if len(replies) != 2 {
		t.Fatalf("replies = %q, want 2", replies)
	}
	if !strings.HasPrefix(replies[0], "Conversation mode set to professional.") {
		t.Errorf("mode reply = %q", replies[0])
	}
	if replies[1] != "ok" {
		t.Errorf("text reply = %q", replies[1])
	}
	if len(prompts) != 1 || prompts[0] != "Welcome. How can I assist you today?\nhi" {
		t.Errorf("prompts = %q", prompts)
	}
}
