// Package index persists the file index as one encrypted document.
//
// Plaintext layout before encryption:
//
//	{"version":2,"files":{"<id>":{"title":"..","createdAt":1,"updatedAt":2}}}
//
// Documents written before versioning are a bare id -> {title, createdAt}
// object; they are accepted on read with updatedAt taken from createdAt and
// rewritten in the current layout on the next Write.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/cryptox"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/models"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/kv"
)

const documentVersion = 2

type document struct {
	Version int          `json:"version"`
	Files   models.Index `json:"files"`
}

type Store struct {
	kv  kv.Store
	log logging.Logger
}

func NewStore(store kv.Store, log logging.Logger) *Store {
	return &Store{kv: store, log: log}
}

// WithKV returns a copy of s operating on store, typically a transaction.
func (s *Store) WithKV(store kv.Store) *Store {
	return &Store{kv: store, log: s.log}
}

// Read returns the index, or an empty one when none is stored or the stored
// document cannot be decrypted or parsed. Unreadable documents are logged.
// Substrate failures are returned as common.ErrStorage.
//
// Read is for queries only. Anything that writes the index back must use
// ReadStrict, or it would replace a document it could not read.
func (s *Store) Read(ctx context.Context, key string) (models.Index, error) {
	ix, err := s.ReadStrict(ctx, key)
	if errors.Is(err, common.ErrStorage) {
		return nil, err
	}
	if err != nil {
		s.log.Warn(ctx, "index unreadable, using empty index", "error", err)
		return models.Index{}, nil
	}
	return ix, nil
}

// ReadStrict is Read without the fallback: an absent document still yields
// an empty index, but storage, decryption and format failures are returned.
func (s *Store) ReadStrict(ctx context.Context, key string) (models.Index, error) {
	raw, err := s.ReadRaw(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return models.Index{}, nil
	}
	if err != nil {
		return nil, err
	}
	return Decode(raw, key)
}

func (s *Store) Write(ctx context.Context, key string, ix models.Index) error {
	ct, err := Encode(ix, key)
	if err != nil {
		return err
	}
	return s.WriteRaw(ctx, ct)
}

// ReadRaw returns the stored ciphertext as is.
func (s *Store) ReadRaw(ctx context.Context) (string, error) {
	b, err := s.kv.Get(ctx, models.IndexKey)
	if errors.Is(err, common.ErrNotFound) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: read index: %w", common.ErrStorage, err)
	}
	return string(b), nil
}

// WriteRaw stores ciphertext produced elsewhere, e.g. by a restored bundle.
func (s *Store) WriteRaw(ctx context.Context, ciphertext string) error {
	if err := s.kv.Set(ctx, models.IndexKey, []byte(ciphertext)); err != nil {
		return fmt.Errorf("%w: write index: %w", common.ErrStorage, err)
	}
	return nil
}

// Encode serializes ix in the current layout and encrypts it under key.
func Encode(ix models.Index, key string) (string, error) {
	if ix == nil {
		ix = models.Index{}
	}
	ct, err := cryptox.EncryptEntry(document{Version: documentVersion, Files: ix}, key)
	if err != nil {
		return "", fmt.Errorf("encrypt index: %w", err)
	}
	return ct, nil
}

// Decode decrypts an index document and upgrades legacy layouts.
func Decode(ciphertext, key string) (models.Index, error) {
	plaintext, err := cryptox.Decrypt(ciphertext, key)
	if err != nil {
		return nil, err
	}
	return parse([]byte(plaintext))
}

func parse(b []byte) (models.Index, error) {
	var doc document
	if err := json.Unmarshal(b, &doc); err == nil && doc.Version >= documentVersion {
		if doc.Files == nil {
			doc.Files = models.Index{}
		}
		return doc.Files, nil
	}

	var legacy map[string]struct {
		Title     string `json:"title"`
		CreatedAt int64  `json:"createdAt"`
		UpdatedAt int64  `json:"updatedAt"`
	}
	if err := json.Unmarshal(b, &legacy); err != nil {
		return nil, fmt.Errorf("%w: index document: %w", common.ErrIntegrity, err)
	}

	ix := make(models.Index, len(legacy))
	for id, e := range legacy {
		updated := e.UpdatedAt
		if updated == 0 {
			updated = e.CreatedAt
		}
		ix[id] = models.IndexEntry{Title: e.Title, CreatedAt: e.CreatedAt, UpdatedAt: updated}
	}
	return ix, nil
}
