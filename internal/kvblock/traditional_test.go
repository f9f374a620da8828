package kvblock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvfuse-project/kvfuse/internal/keys"
	"github.com/kvfuse-project/kvfuse/internal/kv/memkv"
)

const testBlockSize = 64

func newTestTxn(t *testing.T) (context.Context, *memkv.Client, keys.Builder) {
	t.Helper()
	return context.Background(), memkv.NewClient(memkv.New()), keys.NewBuilder([]byte("t"))
}

func TestWriteTraditionalThenReadBackExact(t *testing.T) {
	ctx, client, kb := newTestTxn(t)
	txn, err := client.Begin(ctx)
	require.NoError(t, err)

	data := []byte("hello, kvfuse")
	require.NoError(t, WriteTraditional(ctx, txn, kb, 1, 10, data, testBlockSize))

	got, err := ReadTraditional(ctx, txn, kb, 1, 10, uint64(len(data)), testBlockSize)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReadTraditionalSparseGapReturnsZeros(t *testing.T) {
	ctx, client, kb := newTestTxn(t)
	txn, err := client.Begin(ctx)
	require.NoError(t, err)

	got, err := ReadTraditional(ctx, txn, kb, 1, 0, testBlockSize, testBlockSize)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, testBlockSize), got)
}

func TestWriteTraditionalSpanningMultipleBlocksRoundTrips(t *testing.T) {
	ctx, client, kb := newTestTxn(t)
	txn, err := client.Begin(ctx)
	require.NoError(t, err)

	data := make([]byte, testBlockSize*3+10)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, WriteTraditional(ctx, txn, kb, 1, 5, data, testBlockSize))

	got, err := ReadTraditional(ctx, txn, kb, 1, 5, uint64(len(data)), testBlockSize)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRmwBlockPreservesUntouchedBytes(t *testing.T) {
	ctx, client, kb := newTestTxn(t)
	txn, err := client.Begin(ctx)
	require.NoError(t, err)

	full := make([]byte, testBlockSize)
	for i := range full {
		full[i] = 0xAB
	}
	require.NoError(t, WriteTraditional(ctx, txn, kb, 1, 0, full, testBlockSize))
	require.NoError(t, WriteTraditional(ctx, txn, kb, 1, 10, []byte{0x01, 0x02}, testBlockSize))

	got, err := ReadTraditional(ctx, txn, kb, 1, 0, testBlockSize, testBlockSize)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), got[9])
	assert.Equal(t, byte(0x01), got[10])
	assert.Equal(t, byte(0x02), got[11])
	assert.Equal(t, byte(0xAB), got[12])
}

func TestDeleteBlockRangeRemovesAllBlocks(t *testing.T) {
	ctx, client, kb := newTestTxn(t)
	txn, err := client.Begin(ctx)
	require.NoError(t, err)

	data := make([]byte, testBlockSize*2)
	for i := range data {
		data[i] = 0xFF
	}
	require.NoError(t, WriteTraditional(ctx, txn, kb, 1, 0, data, testBlockSize))
	require.NoError(t, DeleteBlockRange(ctx, txn, kb, 1, 0, 2))

	got, err := ReadTraditional(ctx, txn, kb, 1, 0, testBlockSize*2, testBlockSize)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, testBlockSize*2), got)
}
