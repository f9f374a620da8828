// Package keys builds and parses the flat ordered keyspace that the whole
// filesystem is stored under. Every key has the shape
//
//	<fs-prefix> <kind-tag> <kind-specific fields, big-endian fixed width>
//
// so that lexicographic order equals the intended scan order for every
// range the engine needs (inode ranges, per-inode block ranges, per-parent
// index ranges, and the hashed-block store).
package keys

import (
	"encoding/binary"
)

// Kind tags. Single byte, ordered so that ranges for one kind never bleed
// into another kind's range when both share a numeric prefix.
const (
	kindMeta uint8 = iota + 1
	kindMetaStatic
	kindInode
	kindBlock
	kindIndex
	kindBlockHash
	kindHashedBlock
	kindHashedBlockExists
)

// ROOT is the ino of the filesystem root directory. Non-negative per-file
// inos start here; inos below ROOT are never assigned.
const ROOT uint64 = 1

// Builder prepends a filesystem-owned prefix to every key it produces, so
// that multiple independent kvfuse mounts can share one KV keyspace.
type Builder struct {
	prefix []byte
}

// NewBuilder returns a Builder that owns everything under prefix.
func NewBuilder(prefix []byte) Builder {
	cp := make([]byte, len(prefix))
	copy(cp, prefix)
	return Builder{prefix: cp}
}

func (b Builder) base(kind uint8, extra int) []byte {
	buf := make([]byte, 0, len(b.prefix)+1+extra)
	buf = append(buf, b.prefix...)
	buf = append(buf, kind)
	return buf
}

func putU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Meta returns the singleton key for the mutable Meta record.
func (b Builder) Meta() []byte {
	return b.base(kindMeta, 0)
}

// MetaStatic returns the singleton key for the write-once format record.
func (b Builder) MetaStatic() []byte {
	return b.base(kindMetaStatic, 0)
}

// Inode returns the key for the inode record of ino.
func (b Builder) Inode(ino uint64) []byte {
	return putU64(b.base(kindInode, 8), ino)
}

// InodeRange returns a [start, end) scan range covering Inode(lo)..Inode(hi).
// hi is exclusive, matching Go slicing convention.
func (b Builder) InodeRange(lo, hi uint64) (start, end []byte) {
	return b.Inode(lo), b.Inode(hi)
}

// Block returns the key for one whole block of file (or directory, at index
// 0) payload.
func (b Builder) Block(ino, index uint64) []byte {
	buf := b.base(kindBlock, 16)
	buf = putU64(buf, ino)
	return putU64(buf, index)
}

// BlockRange returns a [start, end) scan range over Block(ino, lo..hi).
func (b Builder) BlockRange(ino, lo, hi uint64) (start, end []byte) {
	return b.Block(ino, lo), b.Block(ino, hi)
}

// BlockHash returns the key mapping (ino, index) to its stored digest in
// hashed-block mode.
func (b Builder) BlockHash(ino, index uint64) []byte {
	buf := b.base(kindBlockHash, 16)
	buf = putU64(buf, ino)
	return putU64(buf, index)
}

// BlockHashRange returns a [start, end) scan range over
// BlockHash(ino, lo..hi).
func (b Builder) BlockHashRange(ino, lo, hi uint64) (start, end []byte) {
	return b.BlockHash(ino, lo), b.BlockHash(ino, hi)
}

// HashedBlock returns the key for the content-addressed payload of digest.
func (b Builder) HashedBlock(digest []byte) []byte {
	buf := b.base(kindHashedBlock, len(digest))
	return append(buf, digest...)
}

// HashedBlockExists returns the key for the zero-length existence marker of
// digest, used as a cheap key-only dedup probe.
func (b Builder) HashedBlockExists(digest []byte) []byte {
	buf := b.base(kindHashedBlockExists, len(digest))
	return append(buf, digest...)
}

// Index returns the key for the (parent, name) -> ino mapping. Name bytes
// are length-prefixed so they can never be confused with the start of a
// following field, and are treated as opaque (not validated as UTF-8).
func (b Builder) Index(parent uint64, name []byte) []byte {
	buf := b.base(kindIndex, 8+2+len(name))
	buf = putU64(buf, parent)
	var ln [2]byte
	binary.BigEndian.PutUint16(ln[:], uint16(len(name)))
	buf = append(buf, ln[:]...)
	return append(buf, name...)
}

// ParseBlockKey recovers (ino, index) from a key produced by Block or
// BlockHash. ok is false if key does not have the expected shape.
func ParseBlockKey(prefixLen int, key []byte) (ino, index uint64, ok bool) {
	rest := key[prefixLen+1:]
	if len(rest) != 16 {
		return 0, 0, false
	}
	ino = binary.BigEndian.Uint64(rest[0:8])
	index = binary.BigEndian.Uint64(rest[8:16])
	return ino, index, true
}

// PrefixLen reports the length of the filesystem-owned prefix this builder
// prepends, for use by callers that need to strip it before parsing.
func (b Builder) PrefixLen() int {
	return len(b.prefix)
}
