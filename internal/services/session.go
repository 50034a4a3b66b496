package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/cryptox"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/models"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/kv"
)

// SessionService keeps the master secret between runs. Possession of the
// secret is the only check: any secret opens a (possibly empty) vault.
type SessionService interface {
	Login(ctx context.Context, secret string) (*cryptox.Keyring, error)
	Resume(ctx context.Context) (*cryptox.Keyring, error)
	Logout(ctx context.Context) error
	GenerateIdentity() (cryptox.KeyPair, error)
}

type sessionService struct {
	kv   kv.Store
	salt string
}

func NewSessionService(store kv.Store, salt string) SessionService {
	return &sessionService{kv: store, salt: salt}
}

func (s *sessionService) Login(ctx context.Context, secret string) (*cryptox.Keyring, error) {
	keys, err := cryptox.NewKeyring(secret, s.salt)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, models.SessionKey, []byte(secret)); err != nil {
		return nil, fmt.Errorf("%w: save session: %w", common.ErrStorage, err)
	}
	return keys, nil
}

// Resume reopens the stored session; common.ErrNotFound when there is none.
func (s *sessionService) Resume(ctx context.Context) (*cryptox.Keyring, error) {
	b, err := s.kv.Get(ctx, models.SessionKey)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("session: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read session: %w", common.ErrStorage, err)
	}
	return cryptox.NewKeyring(string(b), s.salt)
}

// Logout forgets the secret. Files stay encrypted at rest.
func (s *sessionService) Logout(ctx context.Context) error {
	if err := s.kv.Delete(ctx, models.SessionKey); err != nil {
		return fmt.Errorf("%w: clear session: %w", common.ErrStorage, err)
	}
	return nil
}

func (s *sessionService) GenerateIdentity() (cryptox.KeyPair, error) {
	return cryptox.GenerateKeyPair()
}
