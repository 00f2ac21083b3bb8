// Package dispatcher maps inbound chat events onto mode changes and
// completion calls. It knows nothing about the messaging platform: channels
// convert their updates into Events and supply a Replier.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/modebot/internal/completion"
	"github.com/nextlevelbuilder/modebot/internal/modes"
	"github.com/nextlevelbuilder/modebot/internal/sessions"
	"github.com/nextlevelbuilder/modebot/internal/tracing"
)

// DefaultFallbackReply is sent when no completion text could be produced.
const DefaultFallbackReply = "Sorry, I couldn't come up with a reply right now. Please try again in a moment."

// Kind identifies the entry point an event goes through.
type Kind string

const (
	KindStart Kind = "start"
	KindMode  Kind = "mode"
	KindText  Kind = "text"
	KindHelp  Kind = "help"
)

// Event is one inbound interaction.
type Event struct {
	Kind      Kind
	SessionID string
	UserName  string
	Text      string   // raw message for KindText
	Args      []string // command arguments
	RequestID string   // log correlation only
}

// Replier delivers a reply to the originator of an event.
type Replier interface {
	Reply(ctx context.Context, text string) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, text string) error

func (f ReplierFunc) Reply(ctx context.Context, text string) error { return f(ctx, text) }

// Options wires a Dispatcher. Modes defaults to the built-in registry.
type Options struct {
	Modes         *modes.Registry
	Store         sessions.Store
	Completer     completion.Completer
	BotName       string
	FallbackReply string
}

// Dispatcher handles events for every session. It holds no per-session state
// of its own, so one instance can serve all chats.
type Dispatcher struct {
	modes     *modes.Registry
	store     sessions.Store
	completer completion.Completer
	botName   string
	fallback  string
	tracer    trace.Tracer
}

// ErrNoDefaultMode is returned by New when the registry lacks modes.DefaultMode,
// which sessions without a selection fall back to.
var ErrNoDefaultMode = errors.New("mode registry has no default mode " + modes.DefaultMode)

func New(opts Options) (*Dispatcher, error) {
	reg := opts.Modes
	if reg == nil {
		reg = modes.Default()
	}
	if !reg.Has(modes.DefaultMode) {
		return nil, ErrNoDefaultMode
	}
	fallback := opts.FallbackReply
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultFallbackReply
	}
	return &Dispatcher{
		modes:     reg,
		store:     opts.Store,
		completer: opts.Completer,
		botName:   opts.BotName,
		fallback:  fallback,
		tracer:    tracing.Tracer(),
	}, nil
}

// BuildPrompt joins a mode intro and the user's message.
func BuildPrompt(intro, message string) string {
	return intro + "\n" + message
}

// Handle processes ev and sends one reply through r; unknown kinds get none.
// Completion and store failures are turned into user-facing replies, so the
// returned error is only ever a delivery failure from r.
func (d *Dispatcher) Handle(ctx context.Context, ev Event, r Replier) error {
	ctx, span := d.tracer.Start(ctx, "dispatcher.handle",
		trace.WithAttributes(
			attribute.String("event.kind", string(ev.Kind)),
			attribute.String("session.id", ev.SessionID),
		),
	)
	defer span.End()

	slog.Debug("dispatch", "kind", ev.Kind, "session", ev.SessionID, "request_id", ev.RequestID)

	var reply string
	switch ev.Kind {
	case KindStart:
		reply = d.startReply(ev)
	case KindMode:
		reply = d.setMode(ctx, ev)
	case KindHelp:
		reply = d.helpReply(ctx, ev)
	case KindText:
		reply = d.complete(ctx, ev)
	default:
		slog.Debug("dispatch: ignoring event", "kind", ev.Kind, "request_id", ev.RequestID)
		return nil
	}

	if err := r.Reply(ctx, reply); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reply failed")
		return fmt.Errorf("reply to %s: %w", ev.SessionID, err)
	}
	return nil
}

func (d *Dispatcher) startReply(ev Event) string {
	return fmt.Sprintf("Hi %s! I'm %s. To get started, type /mode to select a conversation mode.",
		ev.UserName, d.botName)
}

func (d *Dispatcher) availableModes() string {
	return strings.Join(d.modes.Names(), ", ")
}

func (d *Dispatcher) setMode(ctx context.Context, ev Event) string {
	if len(ev.Args) == 0 || ev.Args[0] == "" {
		current := sessions.ModeOrDefault(ctx, d.store, ev.SessionID)
		return fmt.Sprintf("Usage: /mode <name>. Available modes: %s\nCurrent mode: %s",
			d.availableModes(), current)
	}

	name := ev.Args[0]
	intro, ok := d.modes.Lookup(name)
	if !ok {
		slog.Debug("dispatch: invalid mode", "session", ev.SessionID, "mode", name, "request_id", ev.RequestID)
		return "Invalid mode. Please choose from: " + d.availableModes()
	}

	if err := d.store.SetMode(ctx, ev.SessionID, name); err != nil {
		slog.Error("dispatch: store mode failed",
			"session", ev.SessionID, "mode", name, "request_id", ev.RequestID, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
		return d.fallback
	}
	slog.Info("mode changed", "session", ev.SessionID, "mode", name, "request_id", ev.RequestID)
	return fmt.Sprintf("Conversation mode set to %s. %s", name, intro)
}

func (d *Dispatcher) helpReply(ctx context.Context, ev Event) string {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	sb.WriteString("/start - say hello\n")
	sb.WriteString("/mode <name> - switch conversation mode\n")
	sb.WriteString("/help - show this message\n\n")
	sb.WriteString("Available modes: ")
	sb.WriteString(d.availableModes())
	sb.WriteString("\nCurrent mode: ")
	sb.WriteString(sessions.ModeOrDefault(ctx, d.store, ev.SessionID))
	return sb.String()
}

func (d *Dispatcher) complete(ctx context.Context, ev Event) string {
	mode := sessions.ModeOrDefault(ctx, d.store, ev.SessionID)
	intro, ok := d.modes.Lookup(mode)
	if !ok {
		// A stored name this registry no longer knows.
		slog.Warn("dispatch: stored mode unknown, using default",
			"session", ev.SessionID, "mode", mode, "request_id", ev.RequestID)
		mode = modes.DefaultMode
		intro, _ = d.modes.Lookup(mode)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("mode", mode))

	text, err := d.completer.Complete(ctx, BuildPrompt(intro, ev.Text))
	if err != nil {
		slog.Error("completion failed",
			"session", ev.SessionID, "mode", mode, "request_id", ev.RequestID, "error", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return d.fallback
	}

	text = strings.TrimSpace(text)
	if text == "" {
		slog.Warn("completion returned empty text", "session", ev.SessionID, "mode", mode, "request_id", ev.RequestID)
		return d.fallback
	}
	return text
}
