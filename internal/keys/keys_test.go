package keys

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInodeKeysOrderNumerically(t *testing.T) {
	b := NewBuilder([]byte("fs1"))
	assert.True(t, bytes.Compare(b.Inode(1), b.Inode(2)) < 0)
	assert.True(t, bytes.Compare(b.Inode(9), b.Inode(10)) < 0)
	assert.True(t, bytes.Compare(b.Inode(255), b.Inode(256)) < 0)
}

func TestBlockRangeCoversOnlyItsOwnInode(t *testing.T) {
	b := NewBuilder([]byte("fs1"))
	lo, hi := b.BlockRange(5, 0, 3)
	for i := uint64(0); i < 3; i++ {
		key := b.Block(5, i)
		assert.True(t, bytes.Compare(lo, key) <= 0)
		assert.True(t, bytes.Compare(key, hi) < 0)
	}
	other := b.Block(6, 0)
	assert.False(t, bytes.Compare(lo, other) <= 0 && bytes.Compare(other, hi) < 0)
}

func TestParseBlockKeyRoundTrips(t *testing.T) {
	b := NewBuilder([]byte("fs1"))
	key := b.Block(42, 7)

	ino, index, ok := ParseBlockKey(b.PrefixLen(), key)
	require.True(t, ok)
	assert.Equal(t, uint64(42), ino)
	assert.Equal(t, uint64(7), index)
}

func TestDifferentPrefixesNeverCollide(t *testing.T) {
	a := NewBuilder([]byte("fs1"))
	b := NewBuilder([]byte("fs2"))
	assert.NotEqual(t, a.Inode(1), b.Inode(1))
	assert.NotEqual(t, a.Meta(), b.Meta())
}

func TestInodeRangeAtMaxInoStillOrders(t *testing.T) {
	b := NewBuilder([]byte("fs1"))
	_, hi := b.InodeRange(^uint64(0)-1, ^uint64(0))
	assert.NotEmpty(t, hi)
	assert.True(t, bytes.Compare(b.Inode(^uint64(0)-1), hi) < 0)
}
