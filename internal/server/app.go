// Package server wires configuration, storage, services and HTTP servers
// into one process. The configured role decides which of the gateway, the
// auth service and the file service run; role "all" runs them side by side.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/rest"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/token"
	"github.com/dmitrijs2005/gatekeeper/internal/trust"
	"golang.org/x/sync/errgroup"
)

// logOutput is where the JSON logs go. Tests capture it.
var logOutput io.Writer = os.Stdout

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewJSON(logOutput, c.LogLevel)

	return &App{config: c, logger: logger}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received, shutting down", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run starts every server the role asks for and blocks until ctx ends, a
// signal arrives or one of the servers fails. The first failure stops the
// rest and is returned.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "role", app.config.Role)

	app.initSignalHandler(ctx, cancelFunc)

	servers, cleanup, err := app.buildServers(ctx)
	if err != nil {
		app.logger.Error(ctx, "startup failed", "error", err)
		return err
	}
	defer cleanup()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(func() error {
			return s.Run(gctx)
		})
	}

	err = g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server failed", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
	return err
}

// buildServers assembles the HTTP servers for the configured role. The
// returned cleanup releases the user store.
func (app *App) buildServers(ctx context.Context) ([]*rest.Server, func(), error) {
	cfg := app.config
	codec := token.NewCodec(cfg.TokenConfig(), nil)
	cleanup := func() {}

	var servers []*rest.Server

	if cfg.Runs(config.RoleAuth) {
		rm, err := repomanager.New(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db init error: %w", err)
		}
		cleanup = func() {
			if err := rm.Close(); err != nil {
				app.logger.Error(ctx, "closing user store failed", "error", err)
			}
		}
		if err := rm.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}

		sessions := services.NewSessionService(rm.Users(), codec, app.logger)
		h := rest.NewAuthHandler(sessions, cfg.TrustedHeader, cfg.CookieSecure, app.logger)
		servers = append(servers, rest.NewServer("auth", cfg.AuthAddr, h.Routes(), app.logger))
	}

	if cfg.Runs(config.RoleFiles) {
		files, err := services.NewFileService(ctx, services.FileStorageConfig{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3BaseEndpoint,
			AccessKey: cfg.S3RootUser,
			SecretKey: cfg.S3RootPassword,
		}, app.logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}

		h := rest.NewFilesHandler(files, cfg.TrustedHeader, app.logger)
		servers = append(servers, rest.NewServer("files", cfg.FilesAddr, h.Routes(), app.logger))
	}

	if cfg.Runs(config.RoleGateway) {
		filter := trust.NewEdgeFilter(trust.NewPolicy(cfg.PublicPaths), codec, cfg.TrustedHeader, app.logger)
		h, err := rest.NewGateway(filter, []rest.Route{
			{Name: "auth", Prefix: "/api/auth", Upstream: cfg.AuthUpstream},
			{Name: "files", Prefix: "/api/files", Upstream: cfg.FilesUpstream},
		}, app.logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		servers = append(servers, rest.NewServer("gateway", cfg.GatewayAddr, h, app.logger))
	}

	return servers, cleanup, nil
}
