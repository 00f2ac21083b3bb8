package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/modebot/internal/channels"
	"github.com/nextlevelbuilder/modebot/internal/dispatcher"
	"github.com/nextlevelbuilder/modebot/internal/sessions"
)

var defaultChatSession = sessions.BuildSessionKey("cli", sessions.ScopeUser, "local")

func chatCmd() *cobra.Command {
	var (
		message   string
		sessionID string
		userName  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot from the terminal without Telegram",
		Long: `Run the same dispatcher the Telegram bot uses against stdin/stdout.
Commands (/start, /mode, /help) work exactly as in Telegram.

Examples:
  modebot chat                             # Interactive REPL
  modebot chat -m "/mode professional"     # One-shot command
  modebot chat -s cli:user:alice           # Use another session`,
		Run: func(cmd *cobra.Command, args []string) {
			runChat(message, sessionID, userName)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "one-shot message (omit for interactive mode)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", defaultChatSession, "session key")
	cmd.Flags().StringVar(&userName, "user", "there", "display name used by /start")

	return cmd
}

func runChat(message, sessionID, userName string) {
	if err := checkSessionKey(sessionID); err != nil {
		fatalf("%v", err)
	}
	cfg := mustLoadConfig(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	d, store, err := buildDispatcher(ctx, cfg)
	if err != nil {
		fatalf("build dispatcher: %v", err)
	}
	defer store.Close()

	out := dispatcher.ReplierFunc(func(_ context.Context, text string) error {
		_, err := fmt.Fprintf(os.Stdout, "%s\n\n", text)
		return err
	})

	if message != "" {
		ev, ok := chatEvent(message, sessionID, userName)
		if !ok {
			fatalf("unknown command %q", message)
		}
		if err := d.Handle(ctx, ev, out); err != nil {
			fatalf("%v", err)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "\nmodebot interactive chat\n")
	fmt.Fprintf(os.Stderr, "Bot: %s | Model: %s\n", cfg.Telegram.BotName, cfg.Completion.Model)
	fmt.Fprintf(os.Stderr, "Session: %s\n", sessionID)
	fmt.Fprintf(os.Stderr, "Type \"exit\" to quit, \"/help\" for commands\n\n")

	chatLoop(ctx, os.Stdin, d, out, sessionID, userName)
}

// checkSessionKey rejects -s values that are not canonical session keys.
func checkSessionKey(key string) error {
	if _, _, _, ok := sessions.ParseSessionKey(key); !ok {
		return fmt.Errorf("invalid session key %q, want {channel}:{user|chat}:{id}", key)
	}
	return nil
}

// chatLoop reads lines from in until EOF, "exit"/"quit" or ctx cancellation.
func chatLoop(ctx context.Context, in io.Reader, d *dispatcher.Dispatcher, out dispatcher.Replier, sessionID, userName string) {
	scanner := bufio.NewScanner(in)
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\nGoodbye!")
			return
		default:
		}

		fmt.Fprint(os.Stderr, "You: ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(os.Stderr, "Goodbye!")
			return
		}

		ev, ok := chatEvent(input, sessionID, userName)
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown command. Type /help for the list.\n\n")
			continue
		}
		if err := d.Handle(ctx, ev, out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		}
	}
}

// chatEvent maps one line of terminal input onto a dispatcher event.
func chatEvent(input, sessionID, userName string) (dispatcher.Event, bool) {
	ev := dispatcher.Event{
		SessionID: sessionID,
		UserName:  userName,
		RequestID: uuid.NewString()[:8],
	}

	cmd, args, isCommand := channels.ParseCommand(input, "")
	if !isCommand {
		ev.Kind = dispatcher.KindText
		ev.Text = input
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
