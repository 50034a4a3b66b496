// Package app wires configuration, storage, the remote backend and the
// services together and runs the HTTP API or the interactive shell.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/api"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/cli"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/config"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/kv"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/services"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	store  kv.Store
	closer io.Closer
	blobs  remote.BlobStore
	gate   *services.Gate
}

func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	store, closer, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	blobs, err := NewBlobStore(ctx, cfg)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("remote init error: %w", err)
	}

	opts := services.MirrorOptions{Timeout: cfg.SyncTimeout, ObfuscateNames: cfg.ObfuscateNames}
	gate := services.NewGate(
		services.NewSessionService(store, cfg.EncryptionSalt),
		services.NewStores(store, logger),
		blobs, opts, logger,
	)

	logger.Info(ctx, "app initialized", "storage", cfg.StorageDriver, "remote", cfg.RemoteBackend)
	return &App{config: cfg, logger: logger, store: store, closer: closer, blobs: blobs, gate: gate}, nil
}

// Handler is the HTTP API over this app's session gate.
func (a *App) Handler() http.Handler {
	return api.NewRouter(a.gate, a.config.CORSOrigins, a.logger)
}

// Serve runs the HTTP API on the configured address until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.config.HTTPAddr, err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	if _, err := a.gate.Resume(ctx); err != nil && !errors.Is(err, common.ErrNotFound) {
		a.logger.Warn(ctx, "could not resume session", "error", err)
	}

	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info(ctx, "starting HTTP server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info(ctx, "shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info(ctx, "server stopped")
	return nil
}

// Shell runs the interactive shell on in and out until the user leaves.
func (a *App) Shell(ctx context.Context, in io.Reader, out io.Writer) {
	cli.NewApp(a.gate, in, out, a.logger).Run(ctx)
}

// Close waits for pending mirror runs and releases the storage.
func (a *App) Close() error {
	a.gate.Close()
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
