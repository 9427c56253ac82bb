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
// The real App type satisfies this interface; tests can provide a
// lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	SetContent(ctx context.Context) error
	GetContent(ctx context.Context, who string) error
	AllUsers(ctx context.Context) error
	KVPut(ctx context.Context, key, value string) error
	KVUpsert(ctx context.Context, key, value string) error
	KVGet(ctx context.Context, key string) error
	KVDelete(ctx context.Context, key string) error
	KVKeys(ctx context.Context) error
	KVTop(ctx context.Context) error
	RegisterPlugin(ctx context.Context, name, path string) error
	InvokePlugin(ctx context.Context, name string) error
	Save(ctx context.Context) error
	Bye(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the key-value store CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands and argument
// mistakes are reported back to the user. The loop exits on scanner EOF,
// "quit" (leave the CLI only), or "bye" (authenticate and ask the server to
// shut down).
//
// Any errors returned by command handlers are printed here rather than
// logged by the handlers themselves, keeping the REPL loop the single place
// user-facing output goes through.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("kv %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: setcontent, getcontent [user], allusers, " +
					"kvput <k> <v>, kvupsert <k> <v>, kvget <k>, kvdelete <k>, kvkeys, kvtop, " +
					"regmr <name> <path>, invmr <name>, save, logout, bye, quit")
			} else {
				printlnFn("Available commands: register, login, quit")
			}

		case "register":
			logReplErr(a.Register(ctx))

		case "login":
			logReplErr(a.Login(ctx))

		case "logout":
			logReplErr(a.Logout(ctx))

		case "setcontent":
			logReplErr(a.SetContent(ctx))

		case "getcontent":
			who := ""
			if len(args) > 0 {
				who = args[0]
			}
			logReplErr(a.GetContent(ctx, who))

		case "allusers":
			logReplErr(a.AllUsers(ctx))

		case "kvput":
			if len(args) != 2 {
				printlnFn("Usage: kvput <key> <value>")
				continue
			}
			logReplErr(a.KVPut(ctx, args[0], args[1]))

		case "kvupsert":
			if len(args) != 2 {
				printlnFn("Usage: kvupsert <key> <value>")
				continue
			}
			logReplErr(a.KVUpsert(ctx, args[0], args[1]))

		case "kvget":
			if len(args) != 1 {
				printlnFn("Usage: kvget <key>")
				continue
			}
			logReplErr(a.KVGet(ctx, args[0]))

		case "kvdelete":
			if len(args) != 1 {
				printlnFn("Usage: kvdelete <key>")
				continue
			}
			logReplErr(a.KVDelete(ctx, args[0]))

		case "kvkeys":
			logReplErr(a.KVKeys(ctx))

		case "kvtop":
			logReplErr(a.KVTop(ctx))

		case "regmr":
			if len(args) != 2 {
				printlnFn("Usage: regmr <name> <path-to-executable>")
				continue
			}
			logReplErr(a.RegisterPlugin(ctx, args[0], args[1]))

		case "invmr":
			if len(args) != 1 {
				printlnFn("Usage: invmr <name>")
				continue
			}
			logReplErr(a.InvokePlugin(ctx, args[0]))

		case "save":
			logReplErr(a.Save(ctx))

		case "bye":
			logReplErr(a.Bye(ctx))
			printlnFn("Bye!")
			return

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func logReplErr(err error) {
	if err != nil {
		printlnFn("Error:", err)
	}
}
