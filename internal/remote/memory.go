package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
)

type memBlob struct {
	name    string
	data    []byte
	created time.Time
	seq     int
}

// Memory is an in-process BlobStore. Content ids are derived from the data,
// so identical uploads share an id. The exported hooks let tests inject
// failures or block an upload; they must be set before use.
type Memory struct {
	mu    sync.Mutex
	blobs map[string]memBlob
	seq   int
	now   func() time.Time

	uploads []string
	unpins  []string

	// OnUpload runs before each upload is stored; a non-nil error aborts it.
	OnUpload func(ctx context.Context, name string) error
	// UnpinErr, when set, makes every Unpin fail.
	UnpinErr error
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]memBlob), now: time.Now}
}

func (m *Memory) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if m.OnUpload != nil {
		if err := m.OnUpload(ctx, name); err != nil {
			return "", err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	cid := "mem" + hex.EncodeToString(sum[:16])

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.blobs[cid] = memBlob{name: name, data: append([]byte(nil), data...), created: m.now(), seq: m.seq}
	m.uploads = append(m.uploads, cid)
	return cid, nil
}

func (m *Memory) Unpin(ctx context.Context, contentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unpins = append(m.unpins, contentID)
	if m.UnpinErr != nil {
		return m.UnpinErr
	}
	if _, ok := m.blobs[contentID]; !ok {
		return fmt.Errorf("unpin %s: %w", contentID, common.ErrNotFound)
	}
	delete(m.blobs, contentID)
	return nil
}

func (m *Memory) Find(ctx context.Context, name string) ([]Pin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type found struct {
		pin Pin
		seq int
	}
	var all []found
	for cid, b := range m.blobs {
		if b.name == name {
			all = append(all, found{pin: Pin{Name: b.name, ContentID: cid, CreatedAt: b.created}, seq: b.seq})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq > all[j].seq })

	pins := make([]Pin, len(all))
	for i, f := range all {
		pins[i] = f.pin
	}
	return pins, nil
}

func (m *Memory) Fetch(ctx context.Context, contentID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blobs[contentID]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", contentID, common.ErrNotFound)
	}
	return append([]byte(nil), b.data...), nil
}

// Uploads returns the content ids of all uploads so far, in order.
func (m *Memory) Uploads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.uploads...)
}

// Unpins returns every content id passed to Unpin, in order, failed calls included.
func (m *Memory) Unpins() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.unpins...)
}

// Has reports whether a blob with contentID is currently stored.
func (m *Memory) Has(contentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[contentID]
	return ok
}

// Len is the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
