package channels

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		allowList []string
		sender    string
		want      bool
	}{
		{"empty list allows all", nil, "123|bob", true},
		{"id match", []string{"123"}, "123", true},
		{"id match compound sender", []string{"123"}, "123|bob", true},
		{"username with at", []string{"@bob"}, "123|bob", true},
		{"username without at", []string{"bob"}, "123|bob", true},
		{"compound allow entry", []string{"123|bob"}, "123", true},
		{"no match", []string{"456", "@alice"}, "123|bob", false},
		{"username needs compound sender", []string{"@bob"}, "123", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewBaseChannel("test", tt.allowList)
			if got := c.IsAllowed(tt.sender); got != tt.want {
				t.Errorf("IsAllowed(%q) with %v = %v, want %v", tt.sender, tt.allowList, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("short string = %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("ascii = %q", got)
	}
	// "é" is two bytes; cutting inside it must back off to the rune start.
	if got := Truncate("aé", 2); got != "a..." {
		t.Errorf("multibyte = %q", got)
	}
}

type fakeChannel struct {
	*BaseChannel
	startErr error
	stopped  bool
}

func (f *fakeChannel) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.SetRunning(true)
	return nil
}

func (f *fakeChannel) Stop(context.Context) error {
	f.SetRunning(false)
	f.stopped = true
	return nil
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	if err := m.StartAll(ctx); err == nil {
		t.Fatal("StartAll with no channels: expected error")
	}

	good := &fakeChannel{BaseChannel: NewBaseChannel("good", nil)}
	bad := &fakeChannel{BaseChannel: NewBaseChannel("bad", nil), startErr: errors.New("no token")}
	m.RegisterChannel("good", good)
	m.RegisterChannel("bad", bad)

	if got := m.GetEnabledChannels(); len(got) != 2 || got[0] != "bad" || got[1] != "good" {
		t.Errorf("GetEnabledChannels = %v", got)
	}
	if err := m.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	status := m.GetStatus()
	if !status["good"] || status["bad"] {
		t.Errorf("status = %v", status)
	}
	if ch, ok := m.GetChannel("good"); !ok || ch.Name() != "good" {
		t.Errorf("GetChannel = %v, %v", ch, ok)
	}

	_ = m.StopAll(ctx)
	if !good.stopped || good.IsRunning() {
		t.Error("good channel not stopped")
	}
}

func TestManagerAllFail(t *testing.T) {
	m := NewManager()
	startErr := errors.New("unauthorized")
	m.RegisterChannel("only", &fakeChannel{BaseChannel: NewBaseChannel("only", nil), startErr: startErr})
	if err := m.StartAll(context.Background()); !errors.Is(err, startErr) {
		t.Errorf("StartAll = %v, want wrapped start error", err)
	}
}

func TestManagerWatch(t *testing.T) {
	m := NewManager()
	ch := &fakeChannel{BaseChannel: NewBaseChannel("tg", nil)}
	m.RegisterChannel("tg", ch)
	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Watch(ctx, time.Millisecond); err != nil {
		t.Errorf("Watch after cancel = %v, want nil", err)
	}

	// The receive loop died on its own.
	ch.SetRunning(false)
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Watch(ctx, time.Millisecond); !errors.Is(err, ErrAllChannelsDown) {
		t.Errorf("Watch = %v, want ErrAllChannelsDown", err)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text      string
		cmd       string
		args      []string
		isCommand bool
	}{
		{"hello", "", nil, false},
		{"", "", nil, false},
		{"/start", "start", []string{}, true},
		{"/mode casual", "mode", []string{"casual"}, true},
		{"/mode   professional  extra", "mode", []string{"professional", "extra"}, true},
		{"/Mode@ModeBot romantic", "mode", []string{"romantic"}, true},
		{"/mode@otherbot casual", "", nil, true},
		{"/help", "help", []string{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args, isCommand := ParseCommand(tt.text, "modebot")
			if cmd != tt.cmd || isCommand != tt.isCommand {
				t.Errorf("ParseCommand(%q) = %q, %v; want %q, %v", tt.text, cmd, isCommand, tt.cmd, tt.isCommand)
			}
			if strings.Join(args, ",") != strings.Join(tt.args, ",") {
				t.Errorf("args = %v, want %v", args, tt.args)
			}
		})
	}
}
