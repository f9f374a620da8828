package engine

import (
	"context"

	"github.com/kvfuse-project/kvfuse/internal/kv"
)

// GetRawBlock issues a single get on Block(ino, index) and returns its raw
// bytes, bypassing the inline/hashed dispatch readData uses for ordinary
// reads. It exists for the debug console (spec.md §6) and is read-only: a
// miss is reported via found=false rather than errs.BlockNotFound.
func (f *Facade) GetRawBlock(ctx context.Context, ino, index uint64) (data []byte, found bool, err error) {
	err = f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		var txnErr error
		data, found, txnErr = txn.Get(ctx, f.kb.Block(ino, index))
		return txnErr
	})
	return data, found, err
}
