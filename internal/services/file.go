package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/cryptox"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/models"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/content"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/index"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/kv"
)

// FileService manages the lifecycle of encrypted files.
//
// Contract:
//   - Create fails with common.ErrValidation on an empty title and with
//     common.ErrDuplicateTitle when the title is taken.
//   - Get, UpdateContent, Rename and Delete fail with common.ErrNotFound for
//     unknown ids; a file listed in the index without content is
//     common.ErrIntegrity.
//   - Local writes either fully apply or leave the stores unchanged.
//   - Writes never replace an index this keyring cannot read: they fail with
//     common.ErrDecryption (another secret owns the store) or
//     common.ErrStorage instead.
//   - Every successful mutation triggers the mirror without waiting for it.
type FileService interface {
	Create(ctx context.Context, title, content string) (*models.FileRecord, error)
	Get(ctx context.Context, id string) (*models.FileRecord, error)
	List(ctx context.Context) ([]*models.FileRecord, error)
	UpdateContent(ctx context.Context, id, content string) (*models.FileRecord, error)
	Rename(ctx context.Context, id, title string) (*models.FileRecord, error)
	Delete(ctx context.Context, id string) error
	TitleExists(ctx context.Context, title string) (bool, error)
	UniqueTitle(ctx context.Context, title string) (string, error)
}

// Trigger starts a best-effort mirror run. MirrorService implements it.
type Trigger interface {
	Trigger(ctx context.Context)
}

type noTrigger struct{}

func (noTrigger) Trigger(context.Context) {}

type fileService struct {
	stores     *Stores
	metaKey    string
	contentKey string
	mirror     Trigger
	clock      *Clock
	log        logging.Logger
}

// NewFileService binds the stores to keys. mirror may be nil.
func NewFileService(stores *Stores, keys *cryptox.Keyring, mirror Trigger, clock *Clock, log logging.Logger) FileService {
	if mirror == nil {
		mirror = noTrigger{}
	}
	if clock == nil {
		clock = NewClock()
	}
	return &fileService{
		stores:     stores,
		metaKey:    keys.DeriveKey(cryptox.PurposeMetadata),
		contentKey: keys.DeriveKey(cryptox.PurposeContent),
		mirror:     mirror,
		clock:      clock,
		log:        log.With("component", "files"),
	}
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: empty title", common.ErrValidation)
	}
	return title, nil
}

func notFound(id string) error {
	return fmt.Errorf("file %s: %w", id, common.ErrNotFound)
}

func (s *fileService) Create(ctx context.Context, title, body string) (*models.FileRecord, error) {
	title, err := cleanTitle(title)
	if err != nil {
		return nil, err
	}

	var rec *models.FileRecord
	err = s.stores.update(ctx, func(ctx context.Context, _ kv.Store, ix *index.Store, c *content.Store) error {
		files, err := ix.ReadStrict(ctx, s.metaKey)
		if err != nil {
			return err
		}
		if _, taken := files.TitleOwner(title); taken {
			return fmt.Errorf("%w: %q", common.ErrDuplicateTitle, title)
		}

		now := s.clock.NowMillis()
		id := models.NewFileID(now)
		entry := models.IndexEntry{Title: title, CreatedAt: now, UpdatedAt: now}

		if err := c.Write(ctx, id, body, s.contentKey); err != nil {
			return err
		}
		files[id] = entry
		if err := ix.Write(ctx, s.metaKey, files); err != nil {
			if rerr := c.Remove(ctx, id); rerr != nil {
				s.log.Error(ctx, "failed to roll back content after index write failure", "id", id, "error", rerr)
			}
			return err
		}

		rec = entry.Record(id, body)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "file created", "id", rec.ID)
	s.mirror.Trigger(ctx)
	return rec, nil
}

func (s *fileService) Get(ctx context.Context, id string) (*models.FileRecord, error) {
	var rec *models.FileRecord
	err := s.stores.view(func(ix *index.Store, c *content.Store) error {
		files, err := ix.Read(ctx, s.metaKey)
		if err != nil {
			return err
		}
		entry, ok := files[id]
		if !ok {
			return notFound(id)
		}
		body, err := s.readContent(ctx, c, id)
		if err != nil {
			return err
		}
		rec = entry.Record(id, body)
		return nil
	})
	return rec, err
}

// readContent maps a missing blob of an indexed file to ErrIntegrity.
func (s *fileService) readContent(ctx context.Context, c *content.Store, id string) (string, error) {
	body, err := c.Read(ctx, id, s.contentKey)
	if errors.Is(err, common.ErrNotFound) {
		return "", fmt.Errorf("%w: file %s is indexed but has no content", common.ErrIntegrity, id)
	}
	return body, err
}

// List returns every readable file, newest first. Files whose content cannot
// be read are skipped and logged.
func (s *fileService) List(ctx context.Context) ([]*models.FileRecord, error) {
	var out []*models.FileRecord
	err := s.stores.view(func(ix *index.Store, c *content.Store) error {
		files, err := ix.Read(ctx, s.metaKey)
		if err != nil {
			return err
		}
		out = make([]*models.FileRecord, 0, len(files))
		for id, entry := range files {
			body, err := s.readContent(ctx, c, id)
			if err != nil {
				s.log.Warn(ctx, "skipping unreadable file", "id", id, "error", err)
				continue
			}
			out = append(out, entry.Record(id, body))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *fileService) UpdateContent(ctx context.Context, id, body string) (*models.FileRecord, error) {
	var rec *models.FileRecord
	err := s.stores.update(ctx, func(ctx context.Context, _ kv.Store, ix *index.Store, c *content.Store) error {
		files, err := ix.ReadStrict(ctx, s.metaKey)
		if err != nil {
			return err
		}
		entry, ok := files[id]
		if !ok {
			return notFound(id)
		}

		previous, prevErr := c.ReadRaw(ctx, id)
		if err := c.Write(ctx, id, body, s.contentKey); err != nil {
			return err
		}

		entry.UpdatedAt = s.clock.NowMillis()
		files[id] = entry
		if err := ix.Write(ctx, s.metaKey, files); err != nil {
			s.restoreContent(ctx, c, id, previous, prevErr)
			return err
		}

		rec = entry.Record(id, body)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "file updated", "id", id)
	s.mirror.Trigger(ctx)
	return rec, nil
}

func (s *fileService) restoreContent(ctx context.Context, c *content.Store, id, previous string, prevErr error) {
	var err error
	if prevErr == nil {
		err = c.WriteRaw(ctx, id, previous)
	} else {
		err = c.Remove(ctx, id)
	}
	if err != nil {
		s.log.Error(ctx, "failed to restore content after index write failure", "id", id, "error", err)
	}
}

func (s *fileService) Rename(ctx context.Context, id, title string) (*models.FileRecord, error) {
	title, err := cleanTitle(title)
	if err != nil {
		return nil, err
	}

	var rec *models.FileRecord
	err = s.stores.update(ctx, func(ctx context.Context, _ kv.Store, ix *index.Store, c *content.Store) error {
		files, err := ix.ReadStrict(ctx, s.metaKey)
		if err != nil {
			return err
		}
		entry, ok := files[id]
		if !ok {
			return notFound(id)
		}
		if owner, taken := files.TitleOwner(title); taken && owner != id {
			return fmt.Errorf("%w: %q", common.ErrDuplicateTitle, title)
		}

		body, err := s.readContent(ctx, c, id)
		if err != nil {
			return err
		}

		entry.Title = title
		entry.UpdatedAt = s.clock.NowMillis()
		files[id] = entry
		if err := ix.Write(ctx, s.metaKey, files); err != nil {
			return err
		}

		rec = entry.Record(id, body)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "file renamed", "id", id)
	s.mirror.Trigger(ctx)
	return rec, nil
}

func (s *fileService) Delete(ctx context.Context, id string) error {
	err := s.stores.update(ctx, func(ctx context.Context, _ kv.Store, ix *index.Store, c *content.Store) error {
		files, err := ix.ReadStrict(ctx, s.metaKey)
		if err != nil {
			return err
		}
		entry, ok := files[id]
		if !ok {
			return notFound(id)
		}

		delete(files, id)
		if err := ix.Write(ctx, s.metaKey, files); err != nil {
			return err
		}
		if err := c.Remove(ctx, id); err != nil {
			files[id] = entry
			if rerr := ix.Write(ctx, s.metaKey, files); rerr != nil {
				s.log.Error(ctx, "failed to restore index entry after content removal failure", "id", id, "error", rerr)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "file deleted", "id", id)
	s.mirror.Trigger(ctx)
	return nil
}

func (s *fileService) TitleExists(ctx context.Context, title string) (bool, error) {
	title, err := cleanTitle(title)
	if err != nil {
		return false, err
	}

	var exists bool
	err = s.stores.view(func(ix *index.Store, _ *content.Store) error {
		files, err := ix.Read(ctx, s.metaKey)
		if err != nil {
			return err
		}
		_, exists = files.TitleOwner(title)
		return nil
	})
	return exists, err
}

// UniqueTitle returns title when it is free, otherwise the first free
// "title (n)" for n = 1, 2, ...
func (s *fileService) UniqueTitle(ctx context.Context, title string) (string, error) {
	title, err := cleanTitle(title)
	if err != nil {
		return "", err
	}

	var unique string
	err = s.stores.view(func(ix *index.Store, _ *content.Store) error {
		files, err := ix.Read(ctx, s.metaKey)
		if err != nil {
			return err
		}
		taken := make(map[string]struct{}, len(files))
		for _, e := range files {
			taken[e.Title] = struct{}{}
		}
		unique = title
		for n := 1; ; n++ {
			if _, ok := taken[unique]; !ok {
				return nil
			}
			unique = fmt.Sprintf("%s (%d)", title, n)
		}
	})
	return unique, err
}
