package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvfuse-project/kvfuse/internal/codec"
	"github.com/kvfuse-project/kvfuse/internal/keys"
	"github.com/kvfuse-project/kvfuse/internal/kv/memkv"
	"github.com/kvfuse-project/kvfuse/internal/kvblock"
)

const testBlockSize = 4096

func newTestFacade(t *testing.T, hashed bool) *Facade {
	t.Helper()
	store := memkv.New()
	client := memkv.NewClient(store)
	kb := keys.NewBuilder([]byte("fs1"))
	cfg := Config{
		BlockSize:     testBlockSize,
		HashedBlocks:  hashed,
		HashAlgorithm: kvblock.HashAlgorithm,
		MaxNameLen:    255,
	}
	f := NewFacade(client, kb, cfg, DefaultRetryPolicy())
	require.NoError(t, f.EnsureRoot(context.Background(), 0o755, 0, 0))
	return f
}

func TestMkDirCreatesDotAndDotDot(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t, false)

	in, err := f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	require.NoError(t, err)

	items, err := f.ReadDir(ctx, in.Ino)
	require.NoError(t, err)
	assert.ElementsMatch(t, []codec.DirItem{
		{Ino: in.Ino, Name: ".", Kind: codec.KindDirectory},
		{Ino: keys.ROOT, Name: "..", Kind: codec.KindDirectory},
	}, items)

	parentItems, err := f.ReadDir(ctx, keys.ROOT)
	require.NoError(t, err)
	found := false
	for _, it := range parentItems {
		if it.Name == "a" {
			found = true
			assert.Equal(t, in.Ino, it.Ino)
			assert.Equal(t, codec.KindDirectory, it.Kind)
		}
	}
	assert.True(t, found)
}

func TestInlineFastPathThenPromotion(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t, false)

	dir, err := f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	require.NoError(t, err)
	file, err := f.MkNod(ctx, dir.Ino, "f", codec.KindRegular, 0o644, 0, 0, 0)
	require.NoError(t, err)
	require.NoError(t, f.Open(ctx, file.Ino))

	n, err := f.Write(ctx, file.Ino, 0, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got, err := f.GetAttr(ctx, file.Ino)
	require.NoError(t, err)
	assert.EqualValues(t, 5, got.Size)
	assert.NotNil(t, got.InlineData)

	data, err := f.Read(ctx, file.Ino, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// Cross the inline threshold: promotes to block storage.
	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = 'x'
	}
	_, err = f.Write(ctx, file.Ino, 0, payload)
	require.NoError(t, err)

	got, err = f.GetAttr(ctx, file.Ino)
	require.NoError(t, err)
	assert.Nil(t, got.InlineData)
	assert.EqualValues(t, 1024, got.Size)
}

func TestHashedModeDedupesIdenticalBlocks(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t, true)

	dir, err := f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	require.NoError(t, err)

	payload := make([]byte, testBlockSize)
	for i := range payload {
		payload[i] = 'x'
	}

	f1, err := f.MkNod(ctx, dir.Ino, "f1", codec.KindRegular, 0o644, 0, 0, 0)
	require.NoError(t, err)
	_, err = f.Write(ctx, f1.Ino, 0, payload)
	require.NoError(t, err)

	f2, err := f.MkNod(ctx, dir.Ino, "f2", codec.KindRegular, 0o644, 0, 0, 0)
	require.NoError(t, err)
	_, err = f.Write(ctx, f2.Ino, 0, payload)
	require.NoError(t, err)

	a1, err := f.GetAttr(ctx, f1.Ino)
	require.NoError(t, err)
	a2, err := f.GetAttr(ctx, f2.Ino)
	require.NoError(t, err)
	assert.Equal(t, a1.Size, a2.Size)

	want := kvblock.Digest(payload)

	txn, err := f.client.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback(ctx)
	v, ok, err := txn.Get(ctx, f.kb.BlockHash(f1.Ino, 0))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, v)
	v2, ok, err := txn.Get(ctx, f.kb.BlockHash(f2.Ino, 0))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, v2)
}

func TestSparseWriteZeroFillsGap(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t, false)

	dir, err := f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	require.NoError(t, err)
	file, err := f.MkNod(ctx, dir.Ino, "f", codec.KindRegular, 0o644, 0, 0, 0)
	require.NoError(t, err)

	offset := int64(testBlockSize * 10)
	_, err = f.Write(ctx, file.Ino, offset, []byte("Z"))
	require.NoError(t, err)

	got, err := f.GetAttr(ctx, file.Ino)
	require.NoError(t, err)
	assert.EqualValues(t, testBlockSize*10+1, got.Size)

	data, err := f.Read(ctx, file.Ino, 0, uint64(testBlockSize*10+1))
	require.NoError(t, err)
	require.Len(t, data, testBlockSize*10+1)
	for _, b := range data[:testBlockSize*10] {
		assert.Equal(t, byte(0), b)
	}
	assert.Equal(t, byte('Z'), data[testBlockSize*10])
}

func TestUnlinkDeletesInodeWhenNlinkAndHandlesAreZero(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t, false)

	dir, err := f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	require.NoError(t, err)
	file, err := f.MkNod(ctx, dir.Ino, "f", codec.KindRegular, 0o644, 0, 0, 0)
	require.NoError(t, err)

	require.NoError(t, f.Unlink(ctx, dir.Ino, "f"))

	_, err = f.GetAttr(ctx, file.Ino)
	assert.Error(t, err)
}

func TestUnlinkKeepsInodeWhileOpen(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t, false)

	dir, err := f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	require.NoError(t, err)
	file, err := f.MkNod(ctx, dir.Ino, "f", codec.KindRegular, 0o644, 0, 0, 0)
	require.NoError(t, err)
	require.NoError(t, f.Open(ctx, file.Ino))

	require.NoError(t, f.Unlink(ctx, dir.Ino, "f"))
	_, err = f.GetAttr(ctx, file.Ino)
	require.NoError(t, err, "inode must survive while a handle is open")

	require.NoError(t, f.Release(ctx, file.Ino))
	_, err = f.GetAttr(ctx, file.Ino)
	assert.Error(t, err)
}

func TestRmDirRejectsNonEmpty(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t, false)

	dir, err := f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	require.NoError(t, err)
	_, err = f.MkNod(ctx, dir.Ino, "f", codec.KindRegular, 0o644, 0, 0, 0)
	require.NoError(t, err)

	err = f.RmDir(ctx, keys.ROOT, "a")
	assert.Error(t, err)
}

func TestCreateDuplicateNameFails(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t, false)

	_, err := f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	require.NoError(t, err)
	_, err = f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	assert.Error(t, err)
}

func TestRenameOntoExistingFileDropsNlink(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t, false)

	dir, err := f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	require.NoError(t, err)
	src, err := f.MkNod(ctx, dir.Ino, "f", codec.KindRegular, 0o644, 0, 0, 0)
	require.NoError(t, err)
	dst, err := f.MkNod(ctx, dir.Ino, "g", codec.KindRegular, 0o644, 0, 0, 0)
	require.NoError(t, err)

	require.NoError(t, f.Rename(ctx, dir.Ino, "f", dir.Ino, "g", RenameFlags{}))

	_, err = f.Lookup(ctx, dir.Ino, "f")
	assert.Error(t, err)

	got, err := f.Lookup(ctx, dir.Ino, "g")
	require.NoError(t, err)
	assert.Equal(t, src.Ino, got.Ino)

	// The prior /a/g inode's link is gone, and since it was never opened
	// its record is removed.
	_, err = f.GetAttr(ctx, dst.Ino)
	assert.Error(t, err)
}

func TestStatFsReflectsUsage(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t, false)

	dir, err := f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	require.NoError(t, err)
	_, err = f.MkNod(ctx, dir.Ino, "f", codec.KindRegular, 0o644, 0, 0, 0)
	require.NoError(t, err)

	st, err := f.StatFs(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, st.Files, uint64(3)) // root + dir + file
}

func TestRepeatedIdenticalWriteAddsNoNewHashedPayloads(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t, true)

	dir, err := f.MkDir(ctx, keys.ROOT, "a", 0o755, 0, 0)
	require.NoError(t, err)
	file, err := f.MkNod(ctx, dir.Ino, "f", codec.KindRegular, 0o644, 0, 0, 0)
	require.NoError(t, err)

	payload := make([]byte, testBlockSize*2)
	for i := range payload {
		payload[i] = byte(i)
	}
	countPayloads := func() int {
		txn, err := f.client.Begin(ctx)
		require.NoError(t, err)
		defer txn.Rollback(ctx)
		kvs, err := txn.Scan(ctx, f.kb.HashedBlock(nil), f.kb.HashedBlockExists(nil), 0)
		require.NoError(t, err)
		return len(kvs)
	}

	_, err = f.Write(ctx, file.Ino, 0, payload)
	require.NoError(t, err)
	before := countPayloads()
	_, err = f.Write(ctx, file.Ino, 0, payload)
	require.NoError(t, err)
	assert.Equal(t, before, countPayloads())

	got, err := f.Read(ctx, file.Ino, 0, uint64(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
