package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/cryptox"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/models"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/content"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/index"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/kv"
)

const DefaultSyncTimeout = 30 * time.Second

// MirrorService keeps one encrypted bundle of all files in remote storage.
//
// SyncAll is the plain operation: upload a fresh bundle, then make exactly
// one attempt to unpin currentRemoteID. It does not touch the pointer.
//
// Sync and Trigger run fenced syncs that also maintain the pointer. Every
// run takes a sequence number; when a run finishes after a newer run has
// already committed, it unpins its own upload instead of the pointer's
// bundle, so a slow run never deletes a newer bundle.
type MirrorService interface {
	SyncAll(ctx context.Context, currentRemoteID string) (string, error)
	Sync(ctx context.Context) (string, error)
	Trigger(ctx context.Context)
	Wait()
	Pointer(ctx context.Context) (string, error)
	RemoteExists(ctx context.Context) (bool, error)
	Restore(ctx context.Context) error
}

type MirrorOptions struct {
	// Timeout bounds each background run started by Trigger.
	Timeout time.Duration
	// ObfuscateNames uploads under cryptox.EncryptFileName of the bundle name,
	// for backends whose object names are publicly listed.
	ObfuscateNames bool
}

type mirrorService struct {
	stores     *Stores
	keys       *cryptox.Keyring
	metaKey    string
	pointerKey string
	blobs   remote.BlobStore
	opts    MirrorOptions
	clock   *Clock
	log     logging.Logger

	mu        sync.Mutex
	seq       int64
	committed int64
	wg        sync.WaitGroup
}

func NewMirrorService(stores *Stores, keys *cryptox.Keyring, blobs remote.BlobStore, opts MirrorOptions, clock *Clock, log logging.Logger) MirrorService {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSyncTimeout
	}
	if clock == nil {
		clock = NewClock()
	}
	return &mirrorService{
		stores:     stores,
		keys:       keys,
		metaKey:    keys.DeriveKey(cryptox.PurposeMetadata),
		pointerKey: models.RemotePointerKey(keys.Identity()),
		blobs:      blobs,
		opts:       opts,
		clock:      clock,
		log:        log.With("component", "mirror"),
	}
}

func (m *mirrorService) bundleName() string {
	if m.opts.ObfuscateNames {
		return cryptox.EncryptFileName(m.keys.BundleName())
	}
	return m.keys.BundleName()
}

func (m *mirrorService) nextSeq() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq = max(m.seq+1, time.Now().UnixMilli())
	return m.seq
}

// export assembles the bundle from ciphertext only. The local index must
// decrypt with this keyring, so a bundle never carries another secret's files.
func (m *mirrorService) export(ctx context.Context, seq int64) (*models.Bundle, error) {
	b := &models.Bundle{
		Version:   models.BundleVersion,
		Identity:  m.keys.Identity(),
		Sequence:  seq,
		CreatedAt: m.clock.NowMillis(),
		Files:     []models.BundleFile{},
	}

	err := m.stores.view(func(ix *index.Store, c *content.Store) error {
		files := models.Index{}
		raw, err := ix.ReadRaw(ctx)
		switch {
		case errors.Is(err, common.ErrNotFound):
			if raw, err = index.Encode(files, m.metaKey); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if files, err = index.Decode(raw, m.metaKey); err != nil {
				return fmt.Errorf("local index: %w", err)
			}
		}
		b.Index = raw

		for id, entry := range files {
			blob, err := c.ReadRaw(ctx, id)
			if err != nil {
				m.log.Warn(ctx, "leaving file out of bundle", "id", id, "error", err)
				continue
			}
			b.Files = append(b.Files, models.BundleFile{ID: id, CreatedAt: entry.CreatedAt, Content: blob})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(b.Files, func(i, j int) bool {
		if b.Files[i].CreatedAt != b.Files[j].CreatedAt {
			return b.Files[i].CreatedAt < b.Files[j].CreatedAt
		}
		return b.Files[i].ID < b.Files[j].ID
	})
	return b, nil
}

func (m *mirrorService) upload(ctx context.Context, seq int64) (string, error) {
	if remote.IsDisabled(m.blobs) {
		return "", fmt.Errorf("%w: %w", common.ErrRemoteSync, remote.ErrDisabled)
	}

	b, err := m.export(ctx, seq)
	if err != nil {
		return "", fmt.Errorf("%w: build bundle: %w", common.ErrRemoteSync, err)
	}
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("%w: encode bundle: %w", common.ErrRemoteSync, err)
	}

	cid, err := m.blobs.Upload(ctx, m.bundleName(), data)
	if err != nil {
		return "", fmt.Errorf("%w: upload bundle: %w", common.ErrRemoteSync, err)
	}
	m.log.Debug(ctx, "bundle uploaded", "cid", cid, "sequence", seq, "files", len(b.Files))
	return cid, nil
}

func (m *mirrorService) unpin(ctx context.Context, cid, reason string) {
	if err := m.blobs.Unpin(ctx, cid); err != nil {
		m.log.Warn(ctx, "failed to unpin bundle", "cid", cid, "reason", reason, "error", err)
	}
}

func (m *mirrorService) SyncAll(ctx context.Context, currentRemoteID string) (string, error) {
	cid, err := m.upload(ctx, m.nextSeq())
	if err != nil {
		return "", err
	}
	if currentRemoteID != "" && currentRemoteID != cid {
		m.unpin(ctx, currentRemoteID, "replaced")
	}
	return cid, nil
}

// Sync uploads a bundle and, unless a newer run committed first, makes it
// the pointer and unpins the bundle the pointer named. It returns the
// pointer after the run.
func (m *mirrorService) Sync(ctx context.Context) (string, error) {
	seq := m.nextSeq()
	cid, err := m.upload(ctx, seq)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if seq < m.committed {
		m.log.Info(ctx, "bundle superseded by a newer sync", "cid", cid, "sequence", seq)
		m.unpin(ctx, cid, "superseded")
		return m.Pointer(ctx)
	}

	prev, err := m.Pointer(ctx)
	if err != nil {
		m.unpin(ctx, cid, "pointer unreadable")
		return "", err
	}
	if err := m.stores.KV().Set(ctx, m.pointerKey, []byte(cid)); err != nil {
		m.unpin(ctx, cid, "pointer not saved")
		return "", fmt.Errorf("%w: save remote pointer: %w", common.ErrStorage, err)
	}
	m.committed = seq

	if prev != "" && prev != cid {
		m.unpin(ctx, prev, "replaced")
	}
	m.log.Info(ctx, "remote mirror updated", "cid", cid)
	return cid, nil
}

// Trigger runs Sync in the background, detached from ctx cancellation and
// bounded by the configured timeout. It is a no-op without a remote.
func (m *mirrorService) Trigger(ctx context.Context) {
	if remote.IsDisabled(m.blobs) {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.Timeout)
		defer cancel()

		if _, err := m.Sync(ctx); err != nil {
			m.log.Warn(ctx, "remote mirror failed", "error", err)
		}
	}()
}

// Wait blocks until every triggered run has finished.
func (m *mirrorService) Wait() {
	m.wg.Wait()
}

// Pointer returns the content id of this identity's newest committed
// bundle, or "".
func (m *mirrorService) Pointer(ctx context.Context) (string, error) {
	b, err := m.stores.KV().Get(ctx, m.pointerKey)
	if errors.Is(err, common.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read remote pointer: %w", common.ErrStorage, err)
	}
	return string(b), nil
}

// RemoteExists reports whether a bundle for this identity is stored
// remotely. It proves nothing about who owns the secret.
func (m *mirrorService) RemoteExists(ctx context.Context) (bool, error) {
	if remote.IsDisabled(m.blobs) {
		return false, nil
	}
	pins, err := m.blobs.Find(ctx, m.bundleName())
	if err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrRemoteSync, err)
	}
	return len(pins) > 0, nil
}

// latest resolves the content id of the newest remote bundle. Backends
// without name lookup fall back to the local pointer.
func (m *mirrorService) latest(ctx context.Context) (string, error) {
	pins, err := m.blobs.Find(ctx, m.bundleName())
	if errors.Is(err, remote.ErrUnsupported) {
		cid, perr := m.Pointer(ctx)
		if perr != nil {
			return "", perr
		}
		if cid == "" {
			return "", fmt.Errorf("remote bundle: %w", common.ErrNotFound)
		}
		return cid, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrRemoteSync, err)
	}
	if len(pins) == 0 {
		return "", fmt.Errorf("remote bundle: %w", common.ErrNotFound)
	}
	return pins[0].ContentID, nil
}

// Restore replaces the local index and content with the newest remote
// bundle of this identity and points the pointer at it. The bundle must
// carry this identity and its index must decrypt with this keyring. A local
// index that does not decrypt with this keyring belongs to another secret
// and is never overwritten.
func (m *mirrorService) Restore(ctx context.Context) error {
	if remote.IsDisabled(m.blobs) {
		return fmt.Errorf("%w: %w", common.ErrRemoteSync, remote.ErrDisabled)
	}

	cid, err := m.latest(ctx)
	if err != nil {
		return err
	}
	data, err := m.blobs.Fetch(ctx, cid)
	if err != nil {
		return fmt.Errorf("%w: fetch bundle %s: %w", common.ErrRemoteSync, cid, err)
	}

	var b models.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("%w: bundle %s: %w", common.ErrIntegrity, cid, err)
	}
	if b.Version != models.BundleVersion {
		return fmt.Errorf("%w: bundle %s has unsupported version %d", common.ErrIntegrity, cid, b.Version)
	}
	if b.Identity != m.keys.Identity() {
		return fmt.Errorf("%w: bundle %s belongs to another identity", common.ErrIntegrity, cid)
	}
	files, err := index.Decode(b.Index, m.metaKey)
	if err != nil {
		return fmt.Errorf("bundle %s index: %w", cid, err)
	}
	for _, f := range b.Files {
		if _, ok := files[f.ID]; !ok {
			return fmt.Errorf("%w: bundle %s carries unindexed file %s", common.ErrIntegrity, cid, f.ID)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	err = m.stores.update(ctx, func(ctx context.Context, store kv.Store, ix *index.Store, c *content.Store) error {
		if _, err := ix.ReadStrict(ctx, m.metaKey); err != nil && !errors.Is(err, common.ErrIntegrity) {
			return fmt.Errorf("local index: %w", err)
		}

		ids, err := c.IDs(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := c.Remove(ctx, id); err != nil {
				return err
			}
		}
		for _, f := range b.Files {
			if err := c.WriteRaw(ctx, f.ID, f.Content); err != nil {
				return err
			}
		}
		if err := ix.WriteRaw(ctx, b.Index); err != nil {
			return err
		}
		if err := store.Set(ctx, m.pointerKey, []byte(cid)); err != nil {
			return fmt.Errorf("%w: save remote pointer: %w", common.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.seq = max(m.seq, b.Sequence)
	m.committed = max(m.committed, b.Sequence)
	m.log.Info(ctx, "restored from remote bundle", "cid", cid, "files", len(b.Files))
	return nil
}
