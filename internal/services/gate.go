package services

import (
	"context"
	"sync"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/cryptox"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote"
)

// Gate owns the workspace of the current session. At most one workspace is
// open; logging in with another secret closes the previous one.
type Gate struct {
	sessions SessionService
	stores   *Stores
	blobs    remote.BlobStore
	opts     MirrorOptions
	log      logging.Logger

	mu      sync.RWMutex
	current *Workspace
}

func NewGate(sessions SessionService, stores *Stores, blobs remote.BlobStore, opts MirrorOptions, log logging.Logger) *Gate {
	return &Gate{sessions: sessions, stores: stores, blobs: blobs, opts: opts, log: log}
}

// Login persists secret and opens its workspace.
func (g *Gate) Login(ctx context.Context, secret string) (*Workspace, error) {
	keys, err := g.sessions.Login(ctx, secret)
	if err != nil {
		return nil, err
	}
	return g.open(ctx, keys), nil
}

// Resume opens the workspace of a session stored by an earlier run.
func (g *Gate) Resume(ctx context.Context) (*Workspace, error) {
	keys, err := g.sessions.Resume(ctx)
	if err != nil {
		return nil, err
	}
	return g.open(ctx, keys), nil
}

func (g *Gate) open(ctx context.Context, keys *cryptox.Keyring) *Workspace {
	w := NewWorkspace(g.stores, keys, g.blobs, g.opts, g.log)

	g.mu.Lock()
	prev := g.current
	g.current = w
	g.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	g.log.Info(ctx, "session opened", "identity", keys.Identity())
	return w
}

// Logout forgets the stored secret and closes the open workspace.
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.sessions.Logout(ctx); err != nil {
		return err
	}
	g.Close()
	g.log.Info(ctx, "session closed")
	return nil
}

// Current returns the open workspace, if any.
func (g *Gate) Current() (*Workspace, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current, g.current != nil
}

func (g *Gate) GenerateIdentity() (cryptox.KeyPair, error) {
	return g.sessions.GenerateIdentity()
}

// Close closes the open workspace without touching the stored session.
func (g *Gate) Close() {
	g.mu.Lock()
	w := g.current
	g.current = nil
	g.mu.Unlock()

	if w != nil {
		w.Close()
	}
}
