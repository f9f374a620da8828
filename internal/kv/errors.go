package kv

import "errors"

// ErrConflict is returned by Commit when an optimistic write-write conflict
// is detected. The transaction facade retries the whole operation under its
// backoff policy when it sees this error; callers outside the facade never
// observe it.
var ErrConflict = errors.New("kv: optimistic conflict, retry")
