package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests use a stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	GenKey(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	Create(ctx context.Context) error
	Show(ctx context.Context) error
	Edit(ctx context.Context) error
	Rename(ctx context.Context) error
	Delete(ctx context.Context) error
	Sync(ctx context.Context) error
	Restore(ctx context.Context) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit".
//
//	Not logged in:  help, login, genkey, exit
//	Logged in:      help, (l)ist, create, show, edit, rename, delete,
//	                sync, restore, logout, exit
//
// Handler errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "fm%s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var handler func(context.Context) error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: (l)ist, create, show, edit, rename, delete, sync, restore, logout, exit")
			} else {
				fmt.Fprintln(w, "Available commands: login, genkey, exit")
			}
			continue
		case "login":
			handler = a.Login
		case "genkey":
			handler = a.GenKey
		case "logout":
			handler = a.Logout
		case "l", "list":
			handler = a.List
		case "create":
			handler = a.Create
		case "show":
			handler = a.Show
		case "edit":
			handler = a.Edit
		case "rename":
			handler = a.Rename
		case "delete":
			handler = a.Delete
		case "sync":
			handler = a.Sync
		case "restore":
			handler = a.Restore
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
			continue
		}

		if err := handler(ctx); err != nil {
			if errors.Is(err, errNotLoggedIn) {
				fmt.Fprintln(w, "Please login first.")
				continue
			}
			fmt.Fprintln(w, "Error:", err)
		}
	}
}
