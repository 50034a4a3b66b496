package app

import (
	"context"
	"fmt"
	"io"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/config"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/filex"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote/ipfs"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote/pinata"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote/s3store"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/kv"
)

// OpenStore opens the configured key-value substrate. The closer is nil for
// the in-memory store.
func OpenStore(ctx context.Context, cfg *config.Config) (kv.Store, io.Closer, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return kv.NewMemoryStore(0), nil, nil
	case config.DriverSQLite, config.DriverPostgres:
		if cfg.StorageDriver == config.DriverSQLite && filex.IsPlainPath(cfg.StorageDSN) {
			if err := filex.EnsureParentDir(cfg.StorageDSN); err != nil {
				return nil, nil, err
			}
		}
		s, err := kv.Open(ctx, cfg.StorageDriver, cfg.StorageDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// NewBlobStore builds the configured remote backend.
func NewBlobStore(ctx context.Context, cfg *config.Config) (remote.BlobStore, error) {
	switch cfg.RemoteBackend {
	case config.RemoteNone, "":
		return remote.Disabled{}, nil
	case config.RemoteMemory:
		return remote.NewMemory(), nil
	case config.RemotePinata:
		c, err := pinata.New(pinata.Options{
			APIURL:     cfg.Pinata.APIURL,
			GatewayURL: cfg.Pinata.GatewayURL,
			JWT:        cfg.Pinata.JWT,
			APIKey:     cfg.Pinata.APIKey,
			SecretKey:  cfg.Pinata.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.RemoteS3:
		s, err := s3store.New(ctx, s3store.Options{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.RemoteIPFS:
		return ipfs.New(cfg.IPFSAddr), nil
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.RemoteBackend)
	}
}
