package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Sessions(ctx context.Context) error
	New(ctx context.Context, args []string) error
	Open(ctx context.Context, args []string) error
	Rename(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Export(ctx context.Context) error
	Workspace(ctx context.Context, args []string) error
	Send(ctx context.Context, line string) error
}

const (
	helpAnonymous = "Available commands: register, login, exit"
	helpSignedIn  = "Available commands: sessions, new [title], open <n|id>, rename <title>, " +
		"delete [n|id], export, workspace [id], logout, exit\nAnything else is sent to the open session."
)

// runREPL starts a simple read–eval–print loop for the GophChat CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. While signed in, a line that is
// not a command is sent as a chat message. The loop exits on scanner EOF,
// when ctx is done, or when the user types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("gc %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			if !a.isLoggedIn() {
				printlnFn("Unknown command:", cmd, "(type 'help')")
				continue
			}
			dispatchSignedIn(ctx, a, cmd, args, line)
		}
	}
}

func dispatchSignedIn(ctx context.Context, a execIface, cmd string, args []string, line string) {
	switch cmd {
	case "logout":
		_ = a.Logout(ctx)
	case "sessions", "ls":
		_ = a.Sessions(ctx)
	case "new":
		_ = a.New(ctx, args)
	case "open":
		_ = a.Open(ctx, args)
	case "rename":
		_ = a.Rename(ctx, args)
	case "delete":
		_ = a.Delete(ctx, args)
	case "export":
		_ = a.Export(ctx)
	case "workspace":
		_ = a.Workspace(ctx, args)
	default:
		_ = a.Send(ctx, line)
	}
}
