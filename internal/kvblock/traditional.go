package kvblock

import (
	"context"

	"github.com/kvfuse-project/kvfuse/internal/keys"
	"github.com/kvfuse-project/kvfuse/internal/kv"
)

// ReadTraditional reads size bytes starting at start from ino's whole-block
// storage. Sparse gaps in the scan are filled with zero blocks; the result
// is trimmed to exactly what the caller asked for (never past size bytes).
func ReadTraditional(ctx context.Context, txn kv.Txn, kb keys.Builder, ino, start, size, blockSize uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	rs := SplitRead(start, size, blockSize)

	lo, hi := kb.BlockRange(ino, rs.FirstBlockIndex, rs.EndBlockIndex)
	kvs, err := txn.Scan(ctx, lo, hi, int(rs.TotalBlocks))
	if err != nil {
		return nil, err
	}

	byIndex := make(map[uint64][]byte, len(kvs))
	for _, e := range kvs {
		_, idx, ok := keys.ParseBlockKey(kb.PrefixLen(), e.Key)
		if !ok {
			continue
		}
		byIndex[idx] = e.Value
	}

	out := make([]byte, 0, size)
	for i := rs.FirstBlockIndex; i < rs.EndBlockIndex; i++ {
		block := byIndex[i]
		if block == nil {
			block = make([]byte, blockSize)
		} else if uint64(len(block)) < blockSize {
			padded := make([]byte, blockSize)
			copy(padded, block)
			block = padded
		}

		begin := uint64(0)
		if i == rs.FirstBlockIndex {
			begin = rs.FirstBlockReadOffset
		}
		end := blockSize
		out = append(out, block[begin:end]...)
		if uint64(len(out)) >= size {
			break
		}
	}

	if uint64(len(out)) > size {
		out = out[:size]
	}
	return out, nil
}

// WriteTraditional applies a write of data at start to ino's whole-block
// storage: the first and last touched blocks are read-modify-written, and
// every full block strictly in between is overwritten wholesale.
func WriteTraditional(ctx context.Context, txn kv.Txn, kb keys.Builder, ino uint64, start uint64, data []byte, blockSize uint64) error {
	split := SplitWrite(start, data, blockSize)

	if len(split.FirstData) > 0 {
		if err := rmwBlock(ctx, txn, kb, ino, split.FirstBlockIndex, split.FirstDataStart, split.FirstData, blockSize); err != nil {
			return err
		}
	}

	for i := uint64(0); i < split.MidCount; i++ {
		idx := split.MidBlockIndex + i
		chunk := split.MidData[i*blockSize : (i+1)*blockSize]
		if err := txn.Put(ctx, kb.Block(ino, idx), chunk); err != nil {
			return err
		}
	}

	if len(split.LastData) > 0 {
		if err := rmwBlock(ctx, txn, kb, ino, split.LastBlockIndex, 0, split.LastData, blockSize); err != nil {
			return err
		}
	}

	return nil
}

func rmwBlock(ctx context.Context, txn kv.Txn, kb keys.Builder, ino, index, offset uint64, patch []byte, blockSize uint64) error {
	key := kb.Block(ino, index)
	existing, ok, err := txn.Get(ctx, key)
	if err != nil {
		return err
	}
	block := make([]byte, blockSize)
	if ok {
		copy(block, existing)
	}
	copy(block[offset:], patch)
	return txn.Put(ctx, key, block)
}

// DeleteBlockRange removes every Block key for ino in [lo, hi).
func DeleteBlockRange(ctx context.Context, txn kv.Txn, kb keys.Builder, ino, lo, hi uint64) error {
	start, end := kb.BlockRange(ino, lo, hi)
	kvs, err := txn.Scan(ctx, start, end, 0)
	if err != nil {
		return err
	}
	for _, e := range kvs {
		if err := txn.Delete(ctx, e.Key); err != nil {
			return err
		}
	}
	return nil
}
