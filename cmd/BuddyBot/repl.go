package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/BTreeMap/BuddyBot/internal/flow"
)

const replPrompt = "You: "

// replQuitCommands end a REPL session.
var replQuitCommands = map[string]bool{"/quit": true, "/exit": true}

// runREPL chats with the engine line by line until EOF, a quit command or ctx is done.
func runREPL(ctx context.Context, engine *flow.Engine, sessionID string, in io.Reader, out io.Writer) error {
	if _, err := engine.StartSession(sessionID); err != nil {
		return err
	}
	defer engine.EndSession(sessionID)
	slog.Debug("REPL session started", "session_id", sessionID)

	fmt.Fprintln(out, "BuddyBot is listening. Type /quit to leave.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, replPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if replQuitCommands[strings.ToLower(line)] {
			fmt.Fprintln(out, "BuddyBot: Bye for now! 👋")
			return nil
		}
		result, err := engine.HandleMessage(ctx, sessionID, line)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "BuddyBot: %s\n", result.Reply)
	}
}
