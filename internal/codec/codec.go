// Package codec serializes and deserializes the entity records kvfuse keeps
// in the KV store: Meta, MetaStatic, Inode, Directory, and Index. Encoding
// uses encoding/gob, a canonical self-describing binary format; byte order
// inside values is gob's own and is not meaningful outside this package (only
// key byte order, owned by package keys, needs to sort numerically).
package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"
)

// Kind enumerates the inode's file type, independent of any host-OS mode
// bits encoding.
type Kind uint8

const (
	KindRegular Kind = iota + 1
	KindDirectory
	KindSymlink
	KindFifo
	KindSocket
	KindBlockDev
	KindCharDev
)

// Meta is the singleton record holding mutable filesystem-wide counters.
type Meta struct {
	InodeNext uint64
	LastStat  *StatFs
}

// StatFs is the last-published aggregate filesystem usage snapshot,
// consulted by the space guard before allocating operations so that
// NoSpaceLeft can be decided without a fresh scan.
type StatFs struct {
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Bsize   uint32
	Namelen uint32
}

// MetaStatic is the singleton record written once at format time. A mount
// whose BlockSize or HashAlgorithm disagrees with the stored MetaStatic must
// refuse to proceed.
type MetaStatic struct {
	BlockSize     uint64
	HashedBlocks  bool
	HashAlgorithm string
}

// Inode is the metadata record for one filesystem object.
type Inode struct {
	Ino       uint64
	Size      uint64
	Blocks    uint64
	Kind      Kind
	Perm      uint16
	Uid       uint32
	Gid       uint32
	Rdev      uint32
	Nlink     uint32
	Atime     time.Time
	Mtime     time.Time
	Ctime     time.Time
	Crtime    time.Time
	Flags     uint32
	Blksize   uint32
	OpenedFh  uint32
	InlineData []byte // nil unless this is a small, never-promoted regular file or a symlink (holding its target)
}

// DirItem is one entry in a Directory listing.
type DirItem struct {
	Ino  uint64
	Name string
	Kind Kind
}

// Directory is the ordered listing stored at Block(dir_ino, 0). The
// synthetic "." and ".." entries are always present after mkdir.
type Directory struct {
	Items []DirItem
}

// Index is the value layer of a (parent, name) -> ino lookup.
type Index struct {
	Ino uint64
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("codec: encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("codec: decode %T: %w", v, err)
	}
	return nil
}

func EncodeMeta(m *Meta) ([]byte, error)             { return encode(m) }
func DecodeMeta(data []byte) (*Meta, error)          { m := &Meta{}; err := decode(data, m); return m, err }
func EncodeMetaStatic(m *MetaStatic) ([]byte, error) { return encode(m) }
func DecodeMetaStatic(data []byte) (*MetaStatic, error) {
	m := &MetaStatic{}
	err := decode(data, m)
	return m, err
}
func EncodeInode(in *Inode) ([]byte, error) { return encode(in) }
func DecodeInode(data []byte) (*Inode, error) {
	in := &Inode{}
	err := decode(data, in)
	return in, err
}
func EncodeDirectory(d *Directory) ([]byte, error) { return encode(d) }
func DecodeDirectory(data []byte) (*Directory, error) {
	d := &Directory{}
	err := decode(data, d)
	return d, err
}
func EncodeIndex(ix *Index) ([]byte, error) { return encode(ix) }
func DecodeIndex(data []byte) (*Index, error) {
	ix := &Index{}
	err := decode(data, ix)
	return ix, err
}

// BlocksForSize computes the blocks field from size and block size, per the
// blocks = ceil(size / block_size) invariant.
func BlocksForSize(size, blockSize uint64) uint64 {
	if blockSize == 0 {
		return 0
	}
	return (size + blockSize - 1) / blockSize
}
