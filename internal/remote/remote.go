// Package remote defines the boundary to content-addressed blob storage used
// to mirror encrypted bundles off the device.
//
// Backends live in sub-packages (pinata, s3store, ipfs). Memory is an
// in-process fake; Disabled stands in when no remote is configured.
package remote

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnsupported is returned by backends that cannot perform an operation,
	// such as name lookup on a bare IPFS node.
	ErrUnsupported = errors.New("operation not supported by remote backend")
	// ErrCredentials means the configured credentials are missing or expired.
	ErrCredentials = errors.New("remote credentials missing or expired")
	// ErrDisabled is returned by every Disabled operation.
	ErrDisabled = errors.New("remote storage disabled")
)

// Pin is one stored blob as reported by Find.
type Pin struct {
	Name      string
	ContentID string
	CreatedAt time.Time
}

type BlobStore interface {
	// Upload stores data under name and returns its content id.
	Upload(ctx context.Context, name string, data []byte) (string, error)
	// Unpin removes the blob with the given content id.
	Unpin(ctx context.Context, contentID string) error
	// Find lists blobs stored under exactly name, newest first.
	Find(ctx context.Context, name string) ([]Pin, error)
	// Fetch downloads the blob with the given content id.
	Fetch(ctx context.Context, contentID string) ([]byte, error)
}

// Disabled is the BlobStore used when no remote backend is configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, []byte) (string, error) { return "", ErrDisabled }
func (Disabled) Unpin(context.Context, string) error                    { return ErrDisabled }
func (Disabled) Find(context.Context, string) ([]Pin, error)            { return nil, ErrDisabled }
func (Disabled) Fetch(context.Context, string) ([]byte, error)          { return nil, ErrDisabled }

// IsDisabled reports whether s is the Disabled backend.
func IsDisabled(s BlobStore) bool {
	_, ok := s.(Disabled)
	return ok
}
