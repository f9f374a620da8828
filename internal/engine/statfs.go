package engine

import (
	"context"

	"github.com/kvfuse-project/kvfuse/internal/codec"
	"github.com/kvfuse-project/kvfuse/internal/errs"
	"github.com/kvfuse-project/kvfuse/internal/keys"
	"github.com/kvfuse-project/kvfuse/internal/kv"
)

// StatFs scans Inode(ROOT..inode_next), folds blocks used and a file count,
// computes bfree/bavail against the configured quota (or reports unlimited
// when none is set), and republishes the result into Meta.LastStat so
// future writes can apply the space guard without a scan (spec.md §4.9).
func (f *Facade) StatFs(ctx context.Context) (*codec.StatFs, error) {
	var out *codec.StatFs
	err := f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		meta, err := f.getMeta(ctx, txn)
		if err != nil {
			return err
		}

		lo, hi := f.kb.InodeRange(keys.ROOT, meta.InodeNext)
		limit := 0
		if meta.InodeNext > keys.ROOT {
			limit = int(meta.InodeNext - keys.ROOT)
		}
		kvs, err := txn.Scan(ctx, lo, hi, limit)
		if err != nil {
			return &errs.KvBackend{Msg: err.Error()}
		}

		var blocksUsed, files uint64
		for _, e := range kvs {
			in, err := codec.DecodeInode(e.Value)
			if err != nil {
				return &errs.Serialize{Target: "Inode", Encoding: "gob", Msg: err.Error()}
			}
			blocksUsed += in.Blocks
			files++
		}

		st := &codec.StatFs{
			Blocks:  blocksUsed,
			Files:   files,
			Ffree:   ^uint64(0) - meta.InodeNext,
			Bsize:   uint32(f.cfg.BlockSize),
			Namelen: uint32(f.cfg.MaxNameLen),
		}
		if f.maxBlocks > 0 {
			st.Blocks = f.maxBlocks
			if blocksUsed < f.maxBlocks {
				st.Bfree = f.maxBlocks - blocksUsed
			}
			st.Bavail = st.Bfree
		} else {
			st.Bfree = ^uint64(0)
			st.Bavail = ^uint64(0)
		}

		meta.LastStat = st
		if err := f.putMeta(ctx, txn, meta); err != nil {
			return err
		}
		out = st
		return nil
	})
	return out, err
}

// EnsureRoot creates the root directory inode (ino = keys.ROOT) if it does
// not already exist, linking "." and ".." to itself. Idempotent.
func (f *Facade) EnsureRoot(ctx context.Context, perm uint16, uid, gid uint32) error {
	return f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		_, ok, err := txn.Get(ctx, f.kb.Inode(keys.ROOT))
		if err != nil {
			return &errs.KvBackend{Msg: err.Error()}
		}
		if ok {
			return nil
		}

		meta, err := f.getMeta(ctx, txn)
		if err != nil {
			return err
		}
		if meta.InodeNext <= keys.ROOT {
			meta.InodeNext = keys.ROOT + 1
		}
		if err := f.putMeta(ctx, txn, meta); err != nil {
			return err
		}

		t := now()
		root := &codec.Inode{
			Ino:     keys.ROOT,
			Kind:    codec.KindDirectory,
			Perm:    perm,
			Uid:     uid,
			Gid:     gid,
			Nlink:   2,
			Atime:   t,
			Mtime:   t,
			Ctime:   t,
			Crtime:  t,
			Blksize: uint32(f.cfg.BlockSize),
		}
		if err := f.putInode(ctx, txn, root); err != nil {
			return err
		}

		dir := &codec.Directory{Items: []codec.DirItem{
			{Ino: keys.ROOT, Name: ".", Kind: codec.KindDirectory},
			{Ino: keys.ROOT, Name: "..", Kind: codec.KindDirectory},
		}}
		return f.putDirectory(ctx, txn, keys.ROOT, dir)
	})
}
