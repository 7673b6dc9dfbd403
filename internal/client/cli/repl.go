package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests use a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
	Upload(ctx context.Context, args []string) error
	URL(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
}

// runREPL reads commands line by line from reader and dispatches them.
// Handler errors are printed and the loop carries on. It returns on EOF or
// when the user types "exit" or "quit".
//
//	Not logged in:  help, register, login, exit
//	Logged in:      help, me, refresh, upload, url, delete, download, logout, exit
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "gk %s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(w)
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
				fmt.Fprintln(w, "Available commands: me, refresh, upload <type> <path>, url <object>, delete <object>, download <object> <path>, logout, exit")
			} else {
				fmt.Fprintln(w, "Available commands: register, login, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "refresh":
			cmdErr = a.Refresh(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "me":
			cmdErr = a.Me(ctx)
		case "upload":
			cmdErr = a.Upload(ctx, args)
		case "url":
			cmdErr = a.URL(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx, args)
		case "download":
			cmdErr = a.Download(ctx, args)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "Error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}
