package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/services"
)

var errNotLoggedIn = errors.New("not logged in")

type App struct {
	gate   *services.Gate
	reader *bufio.Reader
	out    io.Writer
	log    logging.Logger
}

func NewApp(gate *services.Gate, in io.Reader, out io.Writer, log logging.Logger) *App {
	return &App{gate: gate, reader: bufio.NewReader(in), out: out, log: log}
}

// Run resumes a stored session if there is one and serves commands until
// the user leaves. Pending mirror runs are awaited before returning.
func (a *App) Run(ctx context.Context) {
	defer a.gate.Close()

	fmt.Fprintln(a.out, "Welcome to the encrypted file manager (type 'help' for commands)")

	if _, err := a.gate.Resume(ctx); err == nil {
		fmt.Fprintln(a.out, "Session resumed.")
	} else if !errors.Is(err, common.ErrNotFound) {
		a.log.Warn(ctx, "could not resume session", "error", err)
	}

	runREPL(ctx, a, a.status, a.reader, a.out)
}

func (a *App) isLoggedIn() bool {
	_, ok := a.gate.Current()
	return ok
}

func (a *App) workspace() (*services.Workspace, error) {
	ws, ok := a.gate.Current()
	if !ok {
		return nil, errNotLoggedIn
	}
	return ws, nil
}

func (a *App) status() string {
	ws, ok := a.gate.Current()
	if !ok {
		return ""
	}
	return fmt.Sprintf(" (%s)", ws.Keys.Identity()[:8])
}

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}
