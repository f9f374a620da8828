package engine

import (
	"context"

	"github.com/kvfuse-project/kvfuse/internal/kv"
)

// Open increments an inode's open file-handle count. The file-handle value
// itself is opaque to the core and owned by the external FUSE-bridge
// collaborator (spec.md §4.8); the engine only tracks how many are open.
func (f *Facade) Open(ctx context.Context, ino uint64) error {
	return f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		in, err := f.getInode(ctx, txn, ino)
		if err != nil {
			return err
		}
		in.OpenedFh++
		return f.putInode(ctx, txn, in)
	})
}

// Release decrements an inode's open file-handle count. When both Nlink and
// OpenedFh reach zero, putInode deletes the Inode record (spec.md §3
// invariant 3, §4.8).
func (f *Facade) Release(ctx context.Context, ino uint64) error {
	return f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		in, err := f.getInode(ctx, txn, ino)
		if err != nil {
			return err
		}
		if in.OpenedFh > 0 {
			in.OpenedFh--
		}
		return f.putInode(ctx, txn, in)
	})
}
