package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/client/client"
	"github.com/dmitrijs2005/gatekeeper/internal/client/config"
	"github.com/dmitrijs2005/gatekeeper/internal/client/session"
)

type App struct {
	config *config.Config
	api    client.Client
	http   *http.Client
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	api, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, session.NewFileStore(c.SessionFile))
	if err != nil {
		return nil, err
	}

	return &App{
		config: c,
		api:    api,
		http:   &http.Client{Timeout: c.RequestTimeout},
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

// Run blocks in the REPL until the user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to Gatekeeper CLI (type 'help' for commands)")
	if a.isLoggedIn() {
		fmt.Fprintf(a.out, "Resuming session for %s\n", a.api.Username())
	}
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

func (a *App) getStatus() string {
	if name := a.api.Username(); a.isLoggedIn() && name != "" {
		return fmt.Sprintf("(%s)", name)
	}
	return ""
}
