// Package content persists one encrypted blob per file under fm:content:<id>.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/cryptox"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/models"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/kv"
)

const payloadVersion = 2

// payload is the plaintext of a blob. Older blobs are either
// {"content":..,"createdAt":..} or the bare content string.
type payload struct {
	V       int     `json:"v,omitempty"`
	Content *string `json:"content"`
}

type Store struct {
	kv kv.Store
}

func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

// WithKV returns a copy of s operating on store, typically a transaction.
func (s *Store) WithKV(store kv.Store) *Store {
	return &Store{kv: store}
}

// Read returns the plaintext content of id. A missing blob is
// common.ErrNotFound; an undecryptable one is common.ErrDecryption.
func (s *Store) Read(ctx context.Context, id, key string) (string, error) {
	raw, err := s.ReadRaw(ctx, id)
	if err != nil {
		return "", err
	}
	plaintext, err := cryptox.Decrypt(raw, key)
	if err != nil {
		return "", fmt.Errorf("content %s: %w", id, err)
	}
	return decode(plaintext), nil
}

func (s *Store) Write(ctx context.Context, id, plaintext, key string) error {
	ct, err := cryptox.EncryptEntry(payload{V: payloadVersion, Content: &plaintext}, key)
	if err != nil {
		return fmt.Errorf("encrypt content %s: %w", id, err)
	}
	return s.WriteRaw(ctx, id, ct)
}

// Remove deletes the blob of id. Removing a missing blob succeeds.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, models.ContentKey(id)); err != nil {
		return fmt.Errorf("%w: remove content %s: %w", common.ErrStorage, id, err)
	}
	return nil
}

func (s *Store) ReadRaw(ctx context.Context, id string) (string, error) {
	b, err := s.kv.Get(ctx, models.ContentKey(id))
	if errors.Is(err, common.ErrNotFound) {
		return "", fmt.Errorf("content %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%w: read content %s: %w", common.ErrStorage, id, err)
	}
	return string(b), nil
}

func (s *Store) WriteRaw(ctx context.Context, id, ciphertext string) error {
	if err := s.kv.Set(ctx, models.ContentKey(id), []byte(ciphertext)); err != nil {
		return fmt.Errorf("%w: write content %s: %w", common.ErrStorage, id, err)
	}
	return nil
}

// IDs lists the ids that have a stored blob, in key order.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, models.ContentKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list content: %w", common.ErrStorage, err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if id, ok := models.ContentID(k); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func decode(plaintext string) string {
	var p payload
	if err := json.Unmarshal([]byte(plaintext), &p); err == nil && p.Content != nil {
		return *p.Content
	}
	return plaintext
}
