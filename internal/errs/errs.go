// Package errs defines the error kinds the engine surfaces to its callers,
// per spec.md §7. These are sentinel-wrapping types, not a single error
// code, so the fsbridge dispatcher can map each one to a precise errno
// without string matching.
package errs

import "fmt"

type Unimplemented struct{ Op string }

func (e *Unimplemented) Error() string { return fmt.Sprintf("unimplemented: %s", e.Op) }

type InodeNotFound struct{ Ino uint64 }

func (e *InodeNotFound) Error() string { return fmt.Sprintf("inode not found: %d", e.Ino) }

type FileNotFound struct{ Name string }

func (e *FileNotFound) Error() string { return fmt.Sprintf("file not found: %q", e.Name) }

type FileExist struct{ Name string }

func (e *FileExist) Error() string { return fmt.Sprintf("file exists: %q", e.Name) }

type DirNotEmpty struct{ Name string }

func (e *DirNotEmpty) Error() string { return fmt.Sprintf("directory not empty: %q", e.Name) }

type BlockNotFound struct {
	Ino   uint64
	Block uint64
}

func (e *BlockNotFound) Error() string {
	return fmt.Sprintf("block not found: ino=%d block=%d", e.Ino, e.Block)
}

type InvalidOffset struct {
	Ino    uint64
	Offset int64
}

func (e *InvalidOffset) Error() string {
	return fmt.Sprintf("invalid offset: ino=%d offset=%d", e.Ino, e.Offset)
}

type NoSpaceLeft struct{ Bytes uint64 }

func (e *NoSpaceLeft) Error() string { return fmt.Sprintf("no space left: wanted %d bytes", e.Bytes) }

type NameTooLong struct{ Name string }

func (e *NameTooLong) Error() string { return fmt.Sprintf("name too long: %q", e.Name) }

type Serialize struct {
	Target   string
	Encoding string
	Msg      string
}

func (e *Serialize) Error() string {
	return fmt.Sprintf("serialize %s (%s): %s", e.Target, e.Encoding, e.Msg)
}

type KvBackend struct{ Msg string }

func (e *KvBackend) Error() string { return fmt.Sprintf("kv backend: %s", e.Msg) }

type UnknownError struct{ Msg string }

func (e *UnknownError) Error() string { return fmt.Sprintf("unknown error: %s", e.Msg) }
