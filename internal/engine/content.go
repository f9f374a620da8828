package engine

import (
	"context"

	"github.com/kvfuse-project/kvfuse/internal/codec"
	"github.com/kvfuse-project/kvfuse/internal/errs"
	"github.com/kvfuse-project/kvfuse/internal/kv"
	"github.com/kvfuse-project/kvfuse/internal/kvblock"
)

// inlineThreshold is the largest size a regular file may have and still be
// stored inline on its Inode record (spec.md §4.3). Heuristic, untested for
// optimality in the source this was distilled from (spec.md §9).
func (f *Facade) inlineThreshold() uint64 {
	return f.cfg.BlockSize / 16
}

// readData dispatches a read of size bytes at start against in to the
// inline, traditional, or hashed-block path, trimming to EOF per
// spec.md §3 invariant 6 (size is authoritative; reads never see zeros
// from beyond it).
func (f *Facade) readData(ctx context.Context, txn kv.Txn, in *codec.Inode, start, size uint64) ([]byte, error) {
	if start >= in.Size {
		return nil, nil
	}
	if start+size > in.Size {
		size = in.Size - start
	}
	if size == 0 {
		return nil, nil
	}

	if in.InlineData != nil {
		end := start + size
		if end > uint64(len(in.InlineData)) {
			end = uint64(len(in.InlineData))
		}
		if start >= end {
			return nil, nil
		}
		out := make([]byte, end-start)
		copy(out, in.InlineData[start:end])
		return out, nil
	}

	if f.cfg.HashedBlocks {
		return kvblock.ReadHashed(ctx, txn, f.kb, in.Ino, start, size, f.cfg.BlockSize)
	}
	return kvblock.ReadTraditional(ctx, txn, f.kb, in.Ino, start, size, f.cfg.BlockSize)
}

// writeData applies a write of data at start to in, mutating in.Size /
// in.Blocks / in.InlineData in place. Callers must still save in via
// putInode within the same transaction.
func (f *Facade) writeData(ctx context.Context, txn kv.Txn, in *codec.Inode, start uint64, data []byte) error {
	threshold := f.inlineThreshold()
	end := start + uint64(len(data))

	stillInline := (in.InlineData != nil || in.Size == 0) && end <= threshold
	if stillInline {
		buf := in.InlineData
		if uint64(len(buf)) < end {
			grown := make([]byte, end)
			copy(grown, buf)
			buf = grown
		}
		copy(buf[start:], data)
		in.InlineData = buf
		in.Size = uint64(len(buf))
		in.Blocks = codec.BlocksForSize(in.Size, f.cfg.BlockSize)
		return nil
	}

	if in.InlineData != nil {
		if err := f.transferInlineDataToBlock(ctx, txn, in); err != nil {
			return err
		}
	}

	var err error
	if f.cfg.HashedBlocks {
		err = kvblock.WriteHashed(ctx, txn, f.kb, in.Ino, start, data, f.cfg.BlockSize)
	} else {
		err = kvblock.WriteTraditional(ctx, txn, f.kb, in.Ino, start, data, f.cfg.BlockSize)
	}
	if err != nil {
		return &errs.KvBackend{Msg: err.Error()}
	}

	if end > in.Size {
		in.Size = end
	}
	in.Blocks = codec.BlocksForSize(in.Size, f.cfg.BlockSize)
	return nil
}

// transferInlineDataToBlock pads the inline bytes to one full block and
// writes it at block index 0, then clears InlineData, per spec.md §4.3.
func (f *Facade) transferInlineDataToBlock(ctx context.Context, txn kv.Txn, in *codec.Inode) error {
	padded := make([]byte, f.cfg.BlockSize)
	copy(padded, in.InlineData)

	var err error
	if f.cfg.HashedBlocks {
		err = kvblock.WriteHashed(ctx, txn, f.kb, in.Ino, 0, padded, f.cfg.BlockSize)
	} else {
		err = txn.Put(ctx, f.kb.Block(in.Ino, 0), padded)
	}
	if err != nil {
		return &errs.KvBackend{Msg: err.Error()}
	}
	in.InlineData = nil
	return nil
}

// destroyInodeContent removes every Block/BlockHash record belonging to in
// when its Inode record itself is about to be deleted. HashedBlock
// payloads are never eagerly reclaimed (spec.md §3 invariant 4, §9).
func (f *Facade) destroyInodeContent(ctx context.Context, txn kv.Txn, in *codec.Inode) error {
	if in.InlineData != nil {
		return nil
	}
	switch in.Kind {
	case codec.KindDirectory:
		if err := txn.Delete(ctx, f.kb.Block(in.Ino, 0)); err != nil {
			return &errs.KvBackend{Msg: err.Error()}
		}
		return nil
	case codec.KindRegular:
		if f.cfg.HashedBlocks {
			return kvblock.DeleteBlockHashRange(ctx, txn, f.kb, in.Ino, 0, in.Blocks)
		}
		return kvblock.DeleteBlockRange(ctx, txn, f.kb, in.Ino, 0, in.Blocks)
	default:
		return nil
	}
}
