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
	Login(ctx context.Context, args []string) error
	Me(ctx context.Context) error
	Users(ctx context.Context) error
	Approve(ctx context.Context, args []string) error
	Verify(ctx context.Context, args []string) error
	Role(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop exits on EOF or when the user types "exit" or "quit".
//
//	Not logged in:
//	  - help                 show available commands
//	  - login [email]        authenticate as an admin
//	  - exit | quit          leave the program
//
//	Logged in, additionally:
//	  - me                   show the current account
//	  - users                list accounts and their state
//	  - approve <id>         approve an account
//	  - verify <id>          mark an email as verified
//	  - role <id> <role>     set role to user or admin
//	  - delete <id...>       delete one or more accounts
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("docmark %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, users, approve <id>, verify <id>, role <id> <user|admin>, delete <id...>, login, exit")
			} else {
				printlnFn("Available commands: login [email], exit")
			}

		case "login":
			cmdErr = a.Login(ctx, args)

		case "me":
			cmdErr = a.Me(ctx)

		case "users", "ls":
			cmdErr = a.Users(ctx)

		case "approve":
			cmdErr = a.Approve(ctx, args)

		case "verify":
			cmdErr = a.Verify(ctx, args)

		case "role":
			cmdErr = a.Role(ctx, args)

		case "delete", "rm":
			cmdErr = a.Delete(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr.Error())
		}
	}
}
