package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInodeRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	in := &Inode{
		Ino:    7,
		Size:   4096,
		Blocks: 1,
		Kind:   KindRegular,
		Perm:   0o644,
		Uid:    1000,
		Gid:    1000,
		Nlink:  1,
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
		Crtime: now,
	}

	data, err := EncodeInode(in)
	require.NoError(t, err)

	got, err := DecodeInode(data)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestInodeRoundTripWithInlineData(t *testing.T) {
	in := &Inode{Ino: 8, Kind: KindRegular, InlineData: []byte("hello")}

	data, err := EncodeInode(in)
	require.NoError(t, err)

	got, err := DecodeInode(data)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.InlineData)
}

func TestDirectoryRoundTrip(t *testing.T) {
	d := &Directory{Items: []DirItem{
		{Ino: 1, Name: ".", Kind: KindDirectory},
		{Ino: 1, Name: "..", Kind: KindDirectory},
		{Ino: 2, Name: "file.txt", Kind: KindRegular},
	}}

	data, err := EncodeDirectory(d)
	require.NoError(t, err)

	got, err := DecodeDirectory(data)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestMetaStaticRoundTrip(t *testing.T) {
	ms := &MetaStatic{BlockSize: 4096, HashedBlocks: true, HashAlgorithm: "blake3-256"}

	data, err := EncodeMetaStatic(ms)
	require.NoError(t, err)

	got, err := DecodeMetaStatic(data)
	require.NoError(t, err)
	assert.Equal(t, ms, got)
}

func TestMetaRoundTripWithNilLastStat(t *testing.T) {
	m := &Meta{InodeNext: 2}

	data, err := EncodeMeta(m)
	require.NoError(t, err)

	got, err := DecodeMeta(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestMetaRoundTripWithLastStat(t *testing.T) {
	m := &Meta{InodeNext: 5, LastStat: &StatFs{Blocks: 10, Bfree: 3, Bavail: 3, Files: 2, Bsize: 4096}}

	data, err := EncodeMeta(m)
	require.NoError(t, err)

	got, err := DecodeMeta(data)
	require.NoError(t, err)
	require.NotNil(t, got.LastStat)
	assert.Equal(t, *m.LastStat, *got.LastStat)
}

func TestBlocksForSize(t *testing.T) {
	cases := []struct {
		size, blockSize, want uint64
	}{
		{0, 4096, 0},
		{1, 4096, 1},
		{4096, 4096, 1},
		{4097, 4096, 2},
		{8192, 4096, 2},
		{100, 0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, BlocksForSize(c.size, c.blockSize))
	}
}
