package dispatcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/modebot/internal/completion"
	"github.com/nextlevelbuilder/modebot/internal/modes"
	"github.com/nextlevelbuilder/modebot/internal/sessions"
)

// fakeCompleter records prompts and returns a canned reply.
type fakeCompleter struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// recorder collects replies.
type recorder struct {
	replies []string
	err     error
}

func (r *recorder) Reply(_ context.Context, text string) error {
	r.replies = append(r.replies, text)
	return r.err
}

func (r *recorder) last(t *testing.T) string {
	t.Helper()
	if len(r.replies) == 0 {
		t.Fatal("no reply sent")
	}
	return r.replies[len(r.replies)-1]
}

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Mode(context.Context, string) (string, error) { return "", errors.New("down") }
func (brokenStore) SetMode(context.Context, string, string) error { return errors.New("down") }
func (brokenStore) Close() error { return nil }

func newTestDispatcher(t *testing.T, store sessions.Store, c completion.Completer) *Dispatcher {
	t.Helper()
	return mustNew(t, Options{Store: store, Completer: c, BotName: "Ada"})
}

func mustNew(t *testing.T, opts Options) *Dispatcher {
	t.Helper()
	d, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

const session = "telegram:user:42"

func TestStart(t *testing.T) {
	store := sessions.NewMemoryStore()
	d := newTestDispatcher(t, store, &fakeCompleter{})
	r := &recorder{}

	if err := d.Handle(context.Background(), Event{Kind: KindStart, SessionID: session, UserName: "Bob"}, r); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	want := "Hi Bob! I'm Ada. To get started, type /mode to select a conversation mode."
	if got := r.last(t); got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
	if store.Len() != 0 {
		t.Error("start mutated session state")
	}
}

func TestFreshSessionUsesCasual(t *testing.T) {
	c := &fakeCompleter{reply: "  hi there \n"}
	d := newTestDispatcher(t, sessions.NewMemoryStore(), c)
	r := &recorder{}

	if err := d.Handle(context.Background(), Event{Kind: KindText, SessionID: session, Text: "Hello"}, r); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(c.prompts) != 1 || c.prompts[0] != "Let's chat! What's on your mind?\nHello" {
		t.Errorf("prompts = %q", c.prompts)
	}
	if got := r.last(t); got != "hi there" {
		t.Errorf("reply = %q, want trimmed completion", got)
	}
}

func TestModeThenTextUsesIntro(t *testing.T) {
	for _, m := range modes.Builtin {
		t.Run(m.Name, func(t *testing.T) {
			c := &fakeCompleter{reply: "ok"}
			d := newTestDispatcher(t, sessions.NewMemoryStore(), c)
			r := &recorder{}
			ctx := context.Background()

			if err := d.Handle(ctx, Event{Kind: KindMode, SessionID: session, Args: []string{m.Name}}, r); err != nil {
				t.Fatalf("Handle mode: %v", err)
			}
			want := "Conversation mode set to " + m.Name + ". " + m.Intro
			if got := r.last(t); got != want {
				t.Errorf("mode reply = %q, want %q", got, want)
			}

			if err := d.Handle(ctx, Event{Kind: KindText, SessionID: session, Text: "how are you"}, r); err != nil {
				t.Fatalf("Handle text: %v", err)
			}
			if c.prompts[0] != BuildPrompt(m.Intro, "how are you") {
				t.Errorf("prompt = %q", c.prompts[0])
			}
			if !strings.HasPrefix(c.prompts[0], m.Intro+"\n") {
				t.Errorf("prompt %q lacks intro prefix", c.prompts[0])
			}
		})
	}
}

func TestInvalidModeLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	_ = store.SetMode(ctx, session, "professional")
	d := newTestDispatcher(t, store, &fakeCompleter{})

	for _, name := range []string{"xyz", "Casual", "casual ", "PROFESSIONAL", "romance"} {
		r := &recorder{}
		if err := d.Handle(ctx, Event{Kind: KindMode, SessionID: session, Args: []string{name}}, r); err != nil {
			t.Fatalf("Handle(%q): %v", name, err)
		}
		if got := r.last(t); got != "Invalid mode. Please choose from: casual, professional, romantic" {
			t.Errorf("mode %q reply = %q", name, got)
		}
		if got, _ := store.Mode(ctx, session); got != "professional" {
			t.Errorf("mode %q mutated session to %q", name, got)
		}
	}

	// A fresh session stays unset.
	r := &recorder{}
	_ = d.Handle(ctx, Event{Kind: KindMode, SessionID: "fresh", Args: []string{"xyz"}}, r)
	if _, ok := store.Get("fresh"); ok {
		t.Error("invalid mode created a session record")
	}
}

func TestModeWithoutArgument(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	d := newTestDispatcher(t, store, &fakeCompleter{})
	r := &recorder{}

	if err := d.Handle(ctx, Event{Kind: KindMode, SessionID: session}, r); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got := r.last(t)
	if !strings.HasPrefix(got, "Usage: /mode <name>. Available modes: casual, professional, romantic") {
		t.Errorf("reply = %q", got)
	}
	if !strings.Contains(got, "Current mode: casual") {
		t.Errorf("reply %q does not show the current mode", got)
	}
	if store.Len() != 0 {
		t.Error("usage reply mutated state")
	}
}

func TestCompletionFailureSendsFallback(t *testing.T) {
	upstream := &completion.UpstreamError{Op: "completions", Status: 401, Err: errors.New("bad key")}
	tests := []struct {
		name     string
		c        *fakeCompleter
		fallback string
		want     string
	}{
		{"upstream error", &fakeCompleter{err: upstream}, "", DefaultFallbackReply},
		{"empty text", &fakeCompleter{reply: " \n\t "}, "", DefaultFallbackReply},
		{"custom fallback", &fakeCompleter{err: upstream}, "brb", "brb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := mustNew(t, Options{Store: sessions.NewMemoryStore(), Completer: tt.c, BotName: "Ada", FallbackReply: tt.fallback})
			r := &recorder{}
			if err := d.Handle(context.Background(), Event{Kind: KindText, SessionID: session, Text: "hi"}, r); err != nil {
				t.Fatalf("Handle returned %v, want nil", err)
			}
			if got := r.last(t); got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	c := &fakeCompleter{reply: "fine"}
	d := newTestDispatcher(t, brokenStore{}, c)

	// Read failure falls back to casual.
	r := &recorder{}
	if err := d.Handle(ctx, Event{Kind: KindText, SessionID: session, Text: "yo"}, r); err != nil {
		t.Fatalf("Handle text: %v", err)
	}
	if c.prompts[0] != "Let's chat! What's on your mind?\nyo" {
		t.Errorf("prompt = %q", c.prompts[0])
	}

	// Write failure is reported, not confirmed.
	r = &recorder{}
	if err := d.Handle(ctx, Event{Kind: KindMode, SessionID: session, Args: []string{"romantic"}}, r); err != nil {
		t.Fatalf("Handle mode: %v", err)
	}
	if got := r.last(t); got != DefaultFallbackReply {
		t.Errorf("reply = %q, want fallback", got)
	}
}

func TestUnknownStoredModeUsesDefault(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	_ = store.SetMode(ctx, session, "retired")
	c := &fakeCompleter{reply: "ok"}
	d := newTestDispatcher(t, store, c)

	if err := d.Handle(ctx, Event{Kind: KindText, SessionID: session, Text: "hi"}, &recorder{}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if c.prompts[0] != "Let's chat! What's on your mind?\nhi" {
		t.Errorf("prompt = %q", c.prompts[0])
	}
}

func TestHelp(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	_ = store.SetMode(ctx, session, "romantic")
	d := newTestDispatcher(t, store, &fakeCompleter{})
	r := &recorder{}

	if err := d.Handle(ctx, Event{Kind: KindHelp, SessionID: session}, r); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got := r.last(t)
	for _, want := range []string{"/start", "/mode <name>", "/help", "casual, professional, romantic", "Current mode: romantic"} {
		if !strings.Contains(got, want) {
			t.Errorf("help reply missing %q:\n%s", want, got)
		}
	}
}

func TestReplyErrorIsReturned(t *testing.T) {
	d := newTestDispatcher(t, sessions.NewMemoryStore(), &fakeCompleter{reply: "x"})
	sendErr := errors.New("chat not found")
	err := d.Handle(context.Background(), Event{Kind: KindStart, SessionID: session}, &recorder{err: sendErr})
	if !errors.Is(err, sendErr) {
		t.Errorf("Handle = %v, want wrapped send error", err)
	}
}

func TestUnknownKindIsIgnored(t *testing.T) {
	d := newTestDispatcher(t, sessions.NewMemoryStore(), &fakeCompleter{})
	r := &recorder{}
	if err := d.Handle(context.Background(), Event{Kind: "sticker", SessionID: session}, r); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(r.replies) != 0 {
		t.Errorf("replies = %q, want none", r.replies)
	}
}

func TestBuildPrompt(t *testing.T) {
	if got := BuildPrompt("Intro.", "msg"); got != "Intro.\nmsg" {
		t.Errorf("BuildPrompt = %q", got)
	}
	if got := BuildPrompt("Intro.", ""); got != "Intro.\n" {
		t.Errorf("BuildPrompt empty message = %q", got)
	}
}

func TestNewRequiresDefaultMode(t *testing.T) {
	reg, err := modes.New(modes.Mode{Name: "professional", Intro: "Welcome."})
	if err != nil {
		t.Fatalf("modes.New: %v", err)
	}
	if _, err := New(Options{Modes: reg, Store: sessions.NewMemoryStore(), Completer: &fakeCompleter{}}); !errors.Is(err, ErrNoDefaultMode) {
		t.Errorf("New without %q = %v, want ErrNoDefaultMode", modes.DefaultMode, err)
	}
}
