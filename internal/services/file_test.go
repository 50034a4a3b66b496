package services

import (
	"context"
	"testing"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/cryptox"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/models"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/repositories/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFiles(t *testing.T, store kv.Store) FileService {
	t.Helper()
	return newWorkspace(t, store, remote.Disabled{}, "master").Files
}

func TestFileService_CreateGetList_Lockstep(t *testing.T) {
	store := kv.NewMemoryStore(0)
	files := newFiles(t, store)
	ctx := context.Background()

	rec, err := files.Create(ctx, "a.txt", "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)

	got, err := files.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	list, err := files.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)

	_, err = store.Get(ctx, models.ContentKey(rec.ID))
	require.NoError(t, err)
}

func TestFileService_Create_Validation(t *testing.T) {
	files := newFiles(t, kv.NewMemoryStore(0))
	ctx := context.Background()

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := files.Create(ctx, title, "x")
		require.ErrorIs(t, err, common.ErrValidation, "title %q", title)
	}

	rec, err := files.Create(ctx, "  padded  ", "")
	require.NoError(t, err)
	assert.Equal(t, "padded", rec.Title)
}

func TestFileService_DuplicateTitles(t *testing.T) {
	files := newFiles(t, kv.NewMemoryStore(0))
	ctx := context.Background()

	_, err := files.Create(ctx, "dup", "1")
	require.NoError(t, err)

	_, err = files.Create(ctx, "dup", "2")
	require.ErrorIs(t, err, common.ErrDuplicateTitle)

	exists, err := files.TitleExists(ctx, "dup")
	require.NoError(t, err)
	assert.True(t, exists)

	next, err := files.UniqueTitle(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "dup (1)", next)

	_, err = files.Create(ctx, next, "2")
	require.NoError(t, err)

	next, err = files.UniqueTitle(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "dup (2)", next)

	free, err := files.UniqueTitle(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", free)

	list, err := files.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestFileService_Delete_RemovesBothHalves(t *testing.T) {
	store := kv.NewMemoryStore(0)
	files := newFiles(t, store)
	ctx := context.Background()

	rec, err := files.Create(ctx, "gone", "bye")
	require.NoError(t, err)

	require.NoError(t, files.Delete(ctx, rec.ID))

	_, err = files.Get(ctx, rec.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.Get(ctx, models.ContentKey(rec.ID))
	require.ErrorIs(t, err, common.ErrNotFound)

	require.ErrorIs(t, files.Delete(ctx, rec.ID), common.ErrNotFound)
}

func TestFileService_List_NewestFirst(t *testing.T) {
	files := newFiles(t, kv.NewMemoryStore(0))
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		rec, err := files.Create(ctx, title, title)
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	list, err := files.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Greater(t, list[0].CreatedAt, list[1].CreatedAt)
	assert.Greater(t, list[1].CreatedAt, list[2].CreatedAt)
}

func TestFileService_UpdateContent_Scenario(t *testing.T) {
	files := newFiles(t, kv.NewMemoryStore(0))
	ctx := context.Background()

	created, err := files.Create(ctx, "notes", "")
	require.NoError(t, err)

	updated, err := files.UpdateContent(ctx, created.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Content)

	got, err := files.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, "notes", got.Title)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
	assert.Greater(t, got.UpdatedAt, created.UpdatedAt)

	_, err = files.UpdateContent(ctx, "missing", "x")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestFileService_Rename(t *testing.T) {
	files := newFiles(t, kv.NewMemoryStore(0))
	ctx := context.Background()

	a, err := files.Create(ctx, "a", "body-a")
	require.NoError(t, err)
	_, err = files.Create(ctx, "b", "body-b")
	require.NoError(t, err)

	_, err = files.Rename(ctx, a.ID, "b")
	require.ErrorIs(t, err, common.ErrDuplicateTitle)

	_, err = files.Rename(ctx, a.ID, " ")
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = files.Rename(ctx, "missing", "c")
	require.ErrorIs(t, err, common.ErrNotFound)

	same, err := files.Rename(ctx, a.ID, "a")
	require.NoError(t, err, "renaming to its own title is allowed")
	assert.Greater(t, same.UpdatedAt, a.UpdatedAt)

	renamed, err := files.Rename(ctx, a.ID, "c")
	require.NoError(t, err)
	assert.Equal(t, "c", renamed.Title)
	assert.Equal(t, "body-a", renamed.Content)

	exists, err := files.TitleExists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileService_Get_IntegrityAndDecryption(t *testing.T) {
	store := kv.NewMemoryStore(0)
	files := newFiles(t, store)
	ctx := context.Background()

	broken, err := files.Create(ctx, "broken", "x")
	require.NoError(t, err)
	foreign, err := files.Create(ctx, "foreign", "y")
	require.NoError(t, err)
	ok, err := files.Create(ctx, "ok", "z")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, models.ContentKey(broken.ID)))

	ct, err := cryptox.Encrypt("y", "some other key")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, models.ContentKey(foreign.ID), []byte(ct)))

	_, err = files.Get(ctx, broken.ID)
	require.ErrorIs(t, err, common.ErrIntegrity)
	require.NotErrorIs(t, err, common.ErrNotFound)

	_, err = files.Get(ctx, foreign.ID)
	require.ErrorIs(t, err, common.ErrDecryption)

	list, err := files.List(ctx)
	require.NoError(t, err, "unreadable files must not fail the listing")
	require.Len(t, list, 1)
	assert.Equal(t, ok.ID, list[0].ID)
}

func TestFileService_Create_RollsBackContentOnIndexFailure(t *testing.T) {
	store := &flakyKV{Store: kv.NewMemoryStore(0)}
	files := newFiles(t, store)
	ctx := context.Background()

	store.failSet = models.IndexKey
	_, err := files.Create(ctx, "doomed", "data")
	require.ErrorIs(t, err, common.ErrStorage)

	keys, err := store.Keys(ctx, models.ContentKeyPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys, "content must be rolled back")

	store.failSet = ""
	list, err := files.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileService_IndexReadFailureKeepsIndex(t *testing.T) {
	store := &flakyKV{Store: kv.NewMemoryStore(0)}
	files := newFiles(t, store)
	ctx := context.Background()

	var recs []*models.FileRecord
	for _, title := range []string{"a", "b", "c"} {
		rec, err := files.Create(ctx, title, "body "+title)
		require.NoError(t, err)
		recs = append(recs, rec)
	}

	store.failGet = models.IndexKey

	_, err := files.Create(ctx, "d", "lost?")
	require.ErrorIs(t, err, common.ErrStorage)
	_, err = files.UpdateContent(ctx, recs[0].ID, "changed")
	require.ErrorIs(t, err, common.ErrStorage)
	_, err = files.Rename(ctx, recs[1].ID, "renamed")
	require.ErrorIs(t, err, common.ErrStorage)
	require.ErrorIs(t, files.Delete(ctx, recs[2].ID), common.ErrStorage)

	_, err = files.List(ctx)
	require.ErrorIs(t, err, common.ErrStorage, "a failing substrate is not an empty index")
	_, err = files.Get(ctx, recs[0].ID)
	require.ErrorIs(t, err, common.ErrStorage)
	_, err = files.TitleExists(ctx, "a")
	require.ErrorIs(t, err, common.ErrStorage)
	_, err = files.UniqueTitle(ctx, "a")
	require.ErrorIs(t, err, common.ErrStorage)

	store.failGet = ""

	list, err := files.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, rec := range list {
		assert.Equal(t, "body "+rec.Title, rec.Content)
	}
	keys, err := store.Keys(ctx, models.ContentKeyPrefix)
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestFileService_Create_QuotaExceeded(t *testing.T) {
	files := newFiles(t, kv.NewMemoryStore(200))
	ctx := context.Background()

	_, err := files.Create(ctx, "big", string(make([]byte, 1024)))
	require.ErrorIs(t, err, common.ErrStorage)
	require.ErrorIs(t, err, kv.ErrQuotaExceeded)

	list, err := files.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileService_UpdateContent_RestoresOnIndexFailure(t *testing.T) {
	store := &flakyKV{Store: kv.NewMemoryStore(0)}
	files := newFiles(t, store)
	ctx := context.Background()

	rec, err := files.Create(ctx, "keep", "original")
	require.NoError(t, err)

	store.failSet = models.IndexKey
	_, err = files.UpdateContent(ctx, rec.ID, "changed")
	require.ErrorIs(t, err, common.ErrStorage)
	store.failSet = ""

	got, err := files.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Content)
	assert.Equal(t, rec.UpdatedAt, got.UpdatedAt)
}

func TestFileService_Delete_RestoresIndexOnContentFailure(t *testing.T) {
	store := &flakyKV{Store: kv.NewMemoryStore(0)}
	files := newFiles(t, store)
	ctx := context.Background()

	rec, err := files.Create(ctx, "sticky", "still here")
	require.NoError(t, err)

	store.failDelete = models.ContentKeyPrefix
	require.ErrorIs(t, files.Delete(ctx, rec.ID), common.ErrStorage)
	store.failDelete = ""

	got, err := files.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "still here", got.Content)
}

func TestFileService_SQLite_Transactional(t *testing.T) {
	db := openSQLite(t)
	store := &flakyTxKV{SQLStore: db}
	files := newFiles(t, store)
	ctx := context.Background()

	rec, err := files.Create(ctx, "persisted", "row")
	require.NoError(t, err)

	store.failSet = models.IndexKey
	_, err = files.Create(ctx, "rolled back", "row")
	require.ErrorIs(t, err, common.ErrStorage)
	store.failSet = ""

	keys, err := db.Keys(ctx, models.ContentKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{models.ContentKey(rec.ID)}, keys)

	list, err := files.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "persisted", list[0].Title)
}

func TestFileService_ReadsLegacyData(t *testing.T) {
	store := kv.NewMemoryStore(0)
	keys := newKeys(t, "master")
	ctx := context.Background()

	legacyIndex, err := cryptox.Encrypt(`{"old-1":{"title":"legacy","createdAt":1690000000000}}`, keys.DeriveKey(cryptox.PurposeMetadata))
	require.NoError(t, err)
	legacyContent, err := cryptox.Encrypt(`{"content":"from before","createdAt":1690000000000}`, keys.DeriveKey(cryptox.PurposeContent))
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, models.IndexKey, []byte(legacyIndex)))
	require.NoError(t, store.Set(ctx, models.ContentKey("old-1"), []byte(legacyContent)))

	files := newFiles(t, store)

	got, err := files.Get(ctx, "old-1")
	require.NoError(t, err)
	assert.Equal(t, &models.FileRecord{
		ID:        "old-1",
		Title:     "legacy",
		Content:   "from before",
		CreatedAt: 1690000000000,
		UpdatedAt: 1690000000000,
	}, got)

	_, err = files.UpdateContent(ctx, "old-1", "migrated")
	require.NoError(t, err)
	got, err = files.Get(ctx, "old-1")
	require.NoError(t, err)
	assert.Equal(t, "migrated", got.Content)
}

func TestFileService_TriggersMirror(t *testing.T) {
	blobs := remote.NewMemory()
	w := newWorkspace(t, kv.NewMemoryStore(0), blobs, "master")
	ctx := context.Background()

	rec, err := w.Files.Create(ctx, "mirrored", "x")
	require.NoError(t, err)
	_, err = w.Files.UpdateContent(ctx, rec.ID, "y")
	require.NoError(t, err)
	_, err = w.Files.Rename(ctx, rec.ID, "renamed")
	require.NoError(t, err)
	require.NoError(t, w.Files.Delete(ctx, rec.ID))
	w.Mirror.Wait()

	assert.Len(t, blobs.Uploads(), 4)
	assert.Equal(t, 1, blobs.Len(), "only the newest bundle stays pinned")

	ptr, err := w.Mirror.Pointer(ctx)
	require.NoError(t, err)
	assert.True(t, blobs.Has(ptr))
}

func TestFileService_MirrorFailureDoesNotFailWrites(t *testing.T) {
	blobs := remote.NewMemory()
	blobs.OnUpload = func(context.Context, string) error { return remote.ErrCredentials }
	w := newWorkspace(t, kv.NewMemoryStore(0), blobs, "master")
	ctx := context.Background()

	rec, err := w.Files.Create(ctx, "local only", "x")
	require.NoError(t, err)
	_, err = w.Files.UpdateContent(ctx, rec.ID, "y")
	require.NoError(t, err)
	w.Mirror.Wait()

	ptr, err := w.Mirror.Pointer(ctx)
	require.NoError(t, err)
	assert.Empty(t, ptr)
}
