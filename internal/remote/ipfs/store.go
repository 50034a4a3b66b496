// Package ipfs is a remote.BlobStore talking to a local IPFS node through
// its HTTP API. A bare node has no name index, so Find is unsupported and
// restore needs the content id from the local pointer.
package ipfs

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote"
	shell "github.com/ipfs/go-ipfs-api"
)

// ipfsShell is the part of *shell.Shell the store uses.
type ipfsShell interface {
	Add(r io.Reader, options ...shell.AddOpts) (string, error)
	Cat(path string) (io.ReadCloser, error)
	Unpin(path string) error
}

type Store struct {
	sh ipfsShell
}

// New connects to the node API at addr, e.g. "localhost:5001".
func New(addr string) *Store {
	return &Store{sh: shell.NewShell(addr)}
}

func (s *Store) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cid, err := s.sh.Add(bytes.NewReader(data), shell.Pin(true))
	if err != nil {
		return "", fmt.Errorf("ipfs add %s: %w", name, err)
	}
	return cid, nil
}

func (s *Store) Unpin(ctx context.Context, contentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.sh.Unpin(contentID); err != nil {
		return fmt.Errorf("ipfs unpin %s: %w", contentID, err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, name string) ([]remote.Pin, error) {
	return nil, fmt.Errorf("ipfs find %s: %w", name, remote.ErrUnsupported)
}

func (s *Store) Fetch(ctx context.Context, contentID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := s.sh.Cat(contentID)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat %s: %w", contentID, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
