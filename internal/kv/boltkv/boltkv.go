// Package boltkv adapts go.etcd.io/bbolt to the kv.Client contract. bbolt
// gives us ACID transactions and ordered, cursor-based scans over a single
// on-disk file; it is the same embeddable-KV role go.etcd.io/bbolt plays as
// an indirect dependency alongside mdbx-go in large Go data-plane services.
//
// bbolt serializes writers (one read-write transaction at a time), so
// write-write conflicts cannot occur the way they would against a truly
// optimistic distributed KV store. The facade's retry policy is still
// driven uniformly for every backend (see internal/engine); against bbolt
// it simply never has anything to retry.
package boltkv

import (
	"bytes"
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/kvfuse-project/kvfuse/internal/kv"
)

var bucketName = []byte("kvfuse")

// Client adapts a *bbolt.DB to kv.Client.
type Client struct {
	db *bbolt.DB
}

// Open opens (creating if absent) a bbolt database file at path and ensures
// the single kvfuse bucket exists.
func Open(path string, noSync bool) (*Client, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltkv: open %s: %w", path, err)
	}
	db.NoSync = noSync

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltkv: create bucket: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close() error { return c.db.Close() }

// Begin starts a bbolt read-write transaction. bbolt has no separate
// optimistic-vs-pessimistic mode; every transaction is a serialized writer
// that also observes a consistent MVCC snapshot for reads.
func (c *Client) Begin(ctx context.Context) (kv.Txn, error) {
	btx, err := c.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("boltkv: begin: %w", err)
	}
	bucket := btx.Bucket(bucketName)
	return &txn{btx: btx, bucket: bucket}, nil
}

type txn struct {
	btx    *bbolt.Tx
	bucket *bbolt.Bucket
	done   bool
}

func (t *txn) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	v := t.bucket.Get(key)
	if v == nil {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (t *txn) Put(ctx context.Context, key, value []byte) error {
	return t.bucket.Put(key, value)
}

func (t *txn) Delete(ctx context.Context, key []byte) error {
	return t.bucket.Delete(key)
}

func (t *txn) Scan(ctx context.Context, start, end []byte, limit int) ([]kv.KeyValue, error) {
	c := t.bucket.Cursor()
	var out []kv.KeyValue
	for k, v := c.Seek(start); k != nil; k, v = c.Next() {
		if end != nil && bytes.Compare(k, end) >= 0 {
			break
		}
		kk := make([]byte, len(k))
		copy(kk, k)
		vv := make([]byte, len(v))
		copy(vv, v)
		out = append(out, kv.KeyValue{Key: kk, Value: vv})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (t *txn) BatchGet(ctx context.Context, keys [][]byte) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if v, ok, _ := t.Get(ctx, key); ok {
			out[string(key)] = v
		}
	}
	return out, nil
}

func (t *txn) BatchMutate(ctx context.Context, puts map[string][]byte, deletes [][]byte) error {
	for k, v := range puts {
		if err := t.bucket.Put([]byte(k), v); err != nil {
			return err
		}
	}
	for _, k := range deletes {
		if err := t.bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (t *txn) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return t.btx.Commit()
}

func (t *txn) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return t.btx.Rollback()
}
