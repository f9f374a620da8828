// Package engine is the transaction facade and per-operation workflow
// layer: begin/commit/rollback, space checks, atime/mtime discipline, and
// the create/mutate/destroy lifecycles spec.md §3–§4 describe. It is the
// only package that opens a kv.Txn; kvblock and codec are pure functions
// over one.
package engine

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/kvfuse-project/kvfuse/internal/codec"
	"github.com/kvfuse-project/kvfuse/internal/errs"
	"github.com/kvfuse-project/kvfuse/internal/keys"
	"github.com/kvfuse-project/kvfuse/internal/kv"
)

// Config is the facade's static, immutable-after-init configuration.
type Config struct {
	BlockSize    uint64
	HashedBlocks bool
	HashAlgorithm string
	MaxSize      uint64 // 0 means unlimited
	MaxNameLen   int
}

// RetryPolicy holds the optimistic lock backoff tier (30-500ms, up to 1000
// attempts) that spec.md §5 assigns to a real optimistic-transaction KV
// client. The region and pessimistic lock tiers are not represented: the
// facade retries on kv.ErrConflict alone and never takes pessimistic locks.
type RetryPolicy struct {
	OptimisticMinBackoff time.Duration
	OptimisticMaxBackoff time.Duration
	OptimisticMaxAttempts int
}

// DefaultRetryPolicy returns the policy spec.md §5 describes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		OptimisticMinBackoff:  30 * time.Millisecond,
		OptimisticMaxBackoff:  500 * time.Millisecond,
		OptimisticMaxAttempts: 1000,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.OptimisticMinBackoff << uint(attempt)
	if d > p.OptimisticMaxBackoff || d <= 0 {
		d = p.OptimisticMaxBackoff
	}
	span := d - p.OptimisticMinBackoff
	if span <= 0 {
		return p.OptimisticMinBackoff
	}
	return p.OptimisticMinBackoff + time.Duration(rand.Int63n(int64(span)+1))
}

// Facade begins, drives, and commits one KV transaction per filesystem
// operation.
type Facade struct {
	client kv.Client
	kb     keys.Builder
	cfg    Config
	retry  RetryPolicy

	maxBlocks uint64
}

// NewFacade returns a Facade bound to client under keyspace kb.
func NewFacade(client kv.Client, kb keys.Builder, cfg Config, retry RetryPolicy) *Facade {
	f := &Facade{client: client, kb: kb, cfg: cfg, retry: retry}
	if cfg.MaxSize > 0 && cfg.BlockSize > 0 {
		f.maxBlocks = cfg.MaxSize / cfg.BlockSize
	}
	return f
}

func (f *Facade) Config() Config { return f.cfg }

// withTxn begins a transaction, runs fn, and commits. On kv.ErrConflict at
// commit it retries fn from scratch (a fresh Begin) under the optimistic
// backoff policy. An error from fn rolls the transaction back and is
// returned to the caller unmodified; a failed Begin, any other Commit
// failure, and exhausted retries are returned as errs.KvBackend (spec.md §7).
func (f *Facade) withTxn(ctx context.Context, fn func(ctx context.Context, txn kv.Txn) error) error {
	var lastErr error
	for attempt := 0; attempt < f.retry.OptimisticMaxAttempts; attempt++ {
		txn, err := f.client.Begin(ctx)
		if err != nil {
			return &errs.KvBackend{Msg: err.Error()}
		}

		if err := fn(ctx, txn); err != nil {
			_ = txn.Rollback(ctx)
			return err
		}

		err = txn.Commit(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, kv.ErrConflict) {
			lastErr = err
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.retry.backoff(attempt)):
			}
			continue
		}
		return &errs.KvBackend{Msg: err.Error()}
	}
	return &errs.KvBackend{Msg: "retries exhausted: " + lastErr.Error()}
}

func (f *Facade) getMeta(ctx context.Context, txn kv.Txn) (*codec.Meta, error) {
	v, ok, err := txn.Get(ctx, f.kb.Meta())
	if err != nil {
		return nil, &errs.KvBackend{Msg: err.Error()}
	}
	if !ok {
		return &codec.Meta{InodeNext: keys.ROOT}, nil
	}
	m, err := codec.DecodeMeta(v)
	if err != nil {
		return nil, &errs.Serialize{Target: "Meta", Encoding: "gob", Msg: err.Error()}
	}
	return m, nil
}

func (f *Facade) putMeta(ctx context.Context, txn kv.Txn, m *codec.Meta) error {
	v, err := codec.EncodeMeta(m)
	if err != nil {
		return &errs.Serialize{Target: "Meta", Encoding: "gob", Msg: err.Error()}
	}
	if err := txn.Put(ctx, f.kb.Meta(), v); err != nil {
		return &errs.KvBackend{Msg: err.Error()}
	}
	return nil
}

// GetMetaStatic reads the write-once format record outside any particular
// operation's transaction, for use at mount time.
func (f *Facade) GetMetaStatic(ctx context.Context) (*codec.MetaStatic, error) {
	txn, err := f.client.Begin(ctx)
	if err != nil {
		return nil, &errs.KvBackend{Msg: err.Error()}
	}
	defer txn.Rollback(ctx)

	v, ok, err := txn.Get(ctx, f.kb.MetaStatic())
	if err != nil {
		return nil, &errs.KvBackend{Msg: err.Error()}
	}
	if !ok {
		return nil, nil
	}
	ms, err := codec.DecodeMetaStatic(v)
	if err != nil {
		return nil, &errs.Serialize{Target: "MetaStatic", Encoding: "gob", Msg: err.Error()}
	}
	return ms, nil
}

// Format writes MetaStatic once, failing if it already exists with
// different parameters than requested (idempotent re-format with identical
// parameters is allowed).
func (f *Facade) Format(ctx context.Context) error {
	return f.withTxn(ctx, func(ctx context.Context, txn kv.Txn) error {
		existing, ok, err := txn.Get(ctx, f.kb.MetaStatic())
		if err != nil {
			return &errs.KvBackend{Msg: err.Error()}
		}
		want := &codec.MetaStatic{
			BlockSize:     f.cfg.BlockSize,
			HashedBlocks:  f.cfg.HashedBlocks,
			HashAlgorithm: f.cfg.HashAlgorithm,
		}
		if ok {
			cur, err := codec.DecodeMetaStatic(existing)
			if err != nil {
				return &errs.Serialize{Target: "MetaStatic", Encoding: "gob", Msg: err.Error()}
			}
			if cur.BlockSize != want.BlockSize || cur.HashedBlocks != want.HashedBlocks || cur.HashAlgorithm != want.HashAlgorithm {
				return &errs.UnknownError{Msg: "format parameters disagree with existing MetaStatic"}
			}
			return nil
		}
		v, err := codec.EncodeMetaStatic(want)
		if err != nil {
			return &errs.Serialize{Target: "MetaStatic", Encoding: "gob", Msg: err.Error()}
		}
		if err := txn.Put(ctx, f.kb.MetaStatic(), v); err != nil {
			return &errs.KvBackend{Msg: err.Error()}
		}
		meta := &codec.Meta{InodeNext: keys.ROOT}
		return f.putMeta(ctx, txn, meta)
	})
}

// checkSpaceLeft fails an allocating operation if the last published
// StatFs reports no space available.
func (f *Facade) checkSpaceLeft(meta *codec.Meta, wanted uint64) error {
	if meta.LastStat == nil {
		return nil
	}
	if meta.LastStat.Bavail == 0 {
		return &errs.NoSpaceLeft{Bytes: wanted}
	}
	return nil
}

func (f *Facade) checkName(name string) error {
	if f.cfg.MaxNameLen > 0 && len(name) > f.cfg.MaxNameLen {
		return &errs.NameTooLong{Name: name}
	}
	return nil
}

func (f *Facade) getInode(ctx context.Context, txn kv.Txn, ino uint64) (*codec.Inode, error) {
	v, ok, err := txn.Get(ctx, f.kb.Inode(ino))
	if err != nil {
		return nil, &errs.KvBackend{Msg: err.Error()}
	}
	if !ok {
		return nil, &errs.InodeNotFound{Ino: ino}
	}
	in, err := codec.DecodeInode(v)
	if err != nil {
		return nil, &errs.Serialize{Target: "Inode", Encoding: "gob", Msg: err.Error()}
	}
	return in, nil
}

// putInode saves in, honoring the deletion invariant: nlink == 0 and
// opened_fh == 0 means the record is deleted instead of written
// (spec.md §3 invariant 3).
func (f *Facade) putInode(ctx context.Context, txn kv.Txn, in *codec.Inode) error {
	if in.Nlink == 0 && in.OpenedFh == 0 {
		if err := f.destroyInodeContent(ctx, txn, in); err != nil {
			return err
		}
		if err := txn.Delete(ctx, f.kb.Inode(in.Ino)); err != nil {
			return &errs.KvBackend{Msg: err.Error()}
		}
		return nil
	}
	v, err := codec.EncodeInode(in)
	if err != nil {
		return &errs.Serialize{Target: "Inode", Encoding: "gob", Msg: err.Error()}
	}
	if err := txn.Put(ctx, f.kb.Inode(in.Ino), v); err != nil {
		return &errs.KvBackend{Msg: err.Error()}
	}
	return nil
}

func now() time.Time { return time.Now() }
