package memkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvfuse-project/kvfuse/internal/kv"
)

func TestPutThenGetWithinSameTxn(t *testing.T) {
	ctx := context.Background()
	c := NewClient(New())

	txn, err := c.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Put(ctx, []byte("k"), []byte("v")))

	v, ok, err := txn.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	assert.NoError(t, txn.Commit(ctx))
}

func TestCommittedWriteVisibleToNewTxn(t *testing.T) {
	ctx := context.Background()
	store := New()
	c := NewClient(store)

	txn1, _ := c.Begin(ctx)
	require.NoError(t, txn1.Put(ctx, []byte("k"), []byte("v1")))
	require.NoError(t, txn1.Commit(ctx))

	txn2, _ := c.Begin(ctx)
	v, ok, err := txn2.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)
}

func TestSnapshotIsolationIgnoresLaterCommits(t *testing.T) {
	ctx := context.Background()
	store := New()
	c := NewClient(store)

	txn1, _ := c.Begin(ctx)
	require.NoError(t, txn1.Put(ctx, []byte("k"), []byte("v1")))
	require.NoError(t, txn1.Commit(ctx))

	reader, _ := c.Begin(ctx)

	txn2, _ := c.Begin(ctx)
	require.NoError(t, txn2.Put(ctx, []byte("k"), []byte("v2")))
	require.NoError(t, txn2.Commit(ctx))

	v, ok, err := reader.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v, "reader's snapshot predates txn2's commit")
}

func TestConcurrentWriteToSameKeyConflicts(t *testing.T) {
	ctx := context.Background()
	store := New()
	c := NewClient(store)

	require.NoError(t, func() error {
		txn, _ := c.Begin(ctx)
		_ = txn.Put(ctx, []byte("k"), []byte("v0"))
		return txn.Commit(ctx)
	}())

	txnA, _ := c.Begin(ctx)
	txnB, _ := c.Begin(ctx)

	require.NoError(t, txnA.Put(ctx, []byte("k"), []byte("vA")))
	require.NoError(t, txnA.Commit(ctx))

	require.NoError(t, txnB.Put(ctx, []byte("k"), []byte("vB")))
	err := txnB.Commit(ctx)
	assert.ErrorIs(t, err, kv.ErrConflict)
}

func TestDeleteRemovesKey(t *testing.T) {
	ctx := context.Background()
	c := NewClient(New())

	txn, _ := c.Begin(ctx)
	require.NoError(t, txn.Put(ctx, []byte("k"), []byte("v")))
	require.NoError(t, txn.Delete(ctx, []byte("k")))

	_, ok, err := txn.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScanReturnsSortedRangeAcrossSnapshotAndWrites(t *testing.T) {
	ctx := context.Background()
	store := New()
	c := NewClient(store)

	seed, _ := c.Begin(ctx)
	require.NoError(t, seed.Put(ctx, []byte("a"), []byte("1")))
	require.NoError(t, seed.Put(ctx, []byte("c"), []byte("3")))
	require.NoError(t, seed.Commit(ctx))

	txn, _ := c.Begin(ctx)
	require.NoError(t, txn.Put(ctx, []byte("b"), []byte("2")))

	kvs, err := txn.Scan(ctx, []byte("a"), []byte("z"), 0)
	require.NoError(t, err)
	require.Len(t, kvs, 3)
	assert.Equal(t, "a", string(kvs[0].Key))
	assert.Equal(t, "b", string(kvs[1].Key))
	assert.Equal(t, "c", string(kvs[2].Key))
}

func TestScanRespectsLimit(t *testing.T) {
	ctx := context.Background()
	c := NewClient(New())
	txn, _ := c.Begin(ctx)
	require.NoError(t, txn.Put(ctx, []byte("a"), []byte("1")))
	require.NoError(t, txn.Put(ctx, []byte("b"), []byte("2")))
	require.NoError(t, txn.Put(ctx, []byte("c"), []byte("3")))

	kvs, err := txn.Scan(ctx, []byte("a"), []byte("z"), 2)
	require.NoError(t, err)
	assert.Len(t, kvs, 2)
}

func TestWithConflictOnceFailsExactlyOneCommit(t *testing.T) {
	ctx := context.Background()
	store := New()
	c := NewClient(store)
	store.WithConflictOnce([]byte("k"))

	txn1, _ := c.Begin(ctx)
	require.NoError(t, txn1.Put(ctx, []byte("k"), []byte("v")))
	assert.ErrorIs(t, txn1.Commit(ctx), kv.ErrConflict)

	txn2, _ := c.Begin(ctx)
	require.NoError(t, txn2.Put(ctx, []byte("k"), []byte("v")))
	assert.NoError(t, txn2.Commit(ctx))
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := New()
	c := NewClient(store)

	txn, _ := c.Begin(ctx)
	require.NoError(t, txn.Put(ctx, []byte("k"), []byte("v")))
	require.NoError(t, txn.Rollback(ctx))

	reader, _ := c.Begin(ctx)
	_, ok, err := reader.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}
