package services

import (
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/cryptox"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote"
)

// Workspace is the set of services bound to one unlocked keyring.
type Workspace struct {
	Keys   *cryptox.Keyring
	Files  FileService
	Mirror MirrorService
}

func NewWorkspace(stores *Stores, keys *cryptox.Keyring, blobs remote.BlobStore, opts MirrorOptions, log logging.Logger) *Workspace {
	log = log.With("identity", keys.Identity()[:12])
	clock := NewClock()
	mirror := NewMirrorService(stores, keys, blobs, opts, clock, log)
	return &Workspace{
		Keys:   keys,
		Files:  NewFileService(stores, keys, mirror, clock, log),
		Mirror: mirror,
	}
}

// Close waits for in-flight mirror runs and wipes the key material.
func (w *Workspace) Close() {
	w.Mirror.Wait()
	w.Keys.Wipe()
}
