// Package kv declares the contract the engine assumes of its external KV
// collaborator: begin_transaction, get, put, delete, scan(range, limit),
// batch_get, batch_mutate, commit, rollback. The engine treats the KV store
// as a black box; this package fixes the Go-shaped interface so two adapters
// (bbolt-backed and in-memory) can be swapped under it without touching
// anything in internal/engine or internal/kvblock.
package kv

import "context"

// KeyValue is one (key, value) scan result.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Client begins transactions against the backing store. Implementations
// must be safe for concurrent use by multiple goroutines.
type Client interface {
	// Begin starts a new transaction at optimistic, snapshot-isolated
	// concurrency. Callers must Commit or Rollback exactly once.
	Begin(ctx context.Context) (Txn, error)

	// Close releases any resources held by the client.
	Close() error
}

// Txn is one filesystem operation's transaction. Every public engine
// operation follows begin -> do work -> commit; on any error, rollback.
type Txn interface {
	// Get returns the value for key, or ok=false if absent.
	Get(ctx context.Context, key []byte) (value []byte, ok bool, err error)

	// Put writes key=value, visible to this transaction immediately and to
	// others after Commit.
	Put(ctx context.Context, key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key []byte) error

	// Scan returns up to limit key-value pairs with start <= key < end, in
	// key order. limit <= 0 means unbounded.
	Scan(ctx context.Context, start, end []byte, limit int) ([]KeyValue, error)

	// BatchGet fetches multiple keys in one round-trip. Missing keys are
	// simply absent from the result map.
	BatchGet(ctx context.Context, keys [][]byte) (map[string][]byte, error)

	// BatchMutate applies puts and deletes as a single mutation batch.
	BatchMutate(ctx context.Context, puts map[string][]byte, deletes [][]byte) error

	// Commit finalizes the transaction. A write-write conflict under
	// optimistic concurrency surfaces as ErrConflict.
	Commit(ctx context.Context) error

	// Rollback discards the transaction. Safe to call after a failed
	// Commit; a no-op if the transaction already committed.
	Rollback(ctx context.Context) error
}
