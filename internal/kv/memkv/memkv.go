// Package memkv is an in-memory implementation of kv.Client used by engine
// unit tests. It gives every transaction a snapshot taken at Begin time and
// detects write-write conflicts at Commit by comparing the keys the
// transaction wrote against the store's version at commit time, the same
// shape of guarantee spec.md assumes of the real collaborator.
package memkv

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/kvfuse-project/kvfuse/internal/kv"
)

type record struct {
	value   []byte
	version uint64
}

// Store is the shared backing map for one mounted filesystem.
type Store struct {
	mu       sync.Mutex
	data     map[string]record
	version  uint64
	conflictOnce map[string]bool // keys that should fail their next Commit once, for tests
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string]record)}
}

// WithConflictOnce arranges for the next Commit that wrote key to fail with
// kv.ErrConflict exactly once, exercising the facade's retry path the way a
// truly optimistic backend occasionally would under contention.
func (s *Store) WithConflictOnce(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflictOnce == nil {
		s.conflictOnce = make(map[string]bool)
	}
	s.conflictOnce[string(key)] = true
}

// Client adapts a Store to kv.Client.
type Client struct {
	store *Store
}

// NewClient returns a kv.Client backed by store.
func NewClient(store *Store) *Client {
	return &Client{store: store}
}

func (c *Client) Begin(ctx context.Context) (kv.Txn, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	snapshot := make(map[string]record, len(c.store.data))
	for k, v := range c.store.data {
		snapshot[k] = v
	}
	return &txn{
		store:     c.store,
		snapshot:  snapshot,
		baseVer:   c.store.version,
		writes:    make(map[string][]byte),
		deletes:   make(map[string]bool),
	}, nil
}

func (c *Client) Close() error { return nil }

type txn struct {
	store    *Store
	snapshot map[string]record
	baseVer  uint64
	writes   map[string][]byte
	deletes  map[string]bool
	done     bool
}

func (t *txn) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	k := string(key)
	if t.deletes[k] {
		return nil, false, nil
	}
	if v, ok := t.writes[k]; ok {
		return v, true, nil
	}
	if r, ok := t.snapshot[k]; ok {
		return r.value, true, nil
	}
	return nil, false, nil
}

func (t *txn) Put(ctx context.Context, key, value []byte) error {
	k := string(key)
	delete(t.deletes, k)
	buf := make([]byte, len(value))
	copy(buf, value)
	t.writes[k] = buf
	return nil
}

func (t *txn) Delete(ctx context.Context, key []byte) error {
	k := string(key)
	delete(t.writes, k)
	t.deletes[k] = true
	return nil
}

func (t *txn) Scan(ctx context.Context, start, end []byte, limit int) ([]kv.KeyValue, error) {
	inRange := func(k string) bool {
		kb := []byte(k)
		if bytes.Compare(kb, start) < 0 {
			return false
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			return false
		}
		return true
	}

	merged := make(map[string][]byte)
	for k, r := range t.snapshot {
		if inRange(k) {
			merged[k] = r.value
		}
	}
	for k, v := range t.writes {
		if inRange(k) {
			merged[k] = v
		}
	}
	for k := range t.deletes {
		delete(merged, k)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	out := make([]kv.KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, kv.KeyValue{Key: []byte(k), Value: merged[k]})
	}
	return out, nil
}

func (t *txn) BatchGet(ctx context.Context, keysToGet [][]byte) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keysToGet))
	for _, key := range keysToGet {
		if v, ok, _ := t.Get(ctx, key); ok {
			out[string(key)] = v
		}
	}
	return out, nil
}

func (t *txn) BatchMutate(ctx context.Context, puts map[string][]byte, deletes [][]byte) error {
	for k, v := range puts {
		if err := t.Put(ctx, []byte(k), v); err != nil {
			return err
		}
	}
	for _, k := range deletes {
		if err := t.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (t *txn) Commit(ctx context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return nil
	}

	for k := range t.writes {
		if t.store.conflictOnce[k] {
			delete(t.store.conflictOnce, k)
			return kv.ErrConflict
		}
	}
	for k := range t.deletes {
		if t.store.conflictOnce[k] {
			delete(t.store.conflictOnce, k)
			return kv.ErrConflict
		}
	}

	// A concurrent committed write to any key this transaction touched,
	// made after our snapshot was taken, is a conflict.
	for k := range t.writes {
		if cur, ok := t.store.data[k]; ok && cur.version > t.baseVer {
			return kv.ErrConflict
		}
	}
	for k := range t.deletes {
		if cur, ok := t.store.data[k]; ok && cur.version > t.baseVer {
			return kv.ErrConflict
		}
	}

	t.store.version++
	ver := t.store.version
	for k, v := range t.writes {
		t.store.data[k] = record{value: v, version: ver}
	}
	for k := range t.deletes {
		delete(t.store.data, k)
	}
	t.done = true
	return nil
}

func (t *txn) Rollback(ctx context.Context) error {
	t.done = true
	return nil
}
