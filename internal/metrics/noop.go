package metrics

import (
	"context"
	"time"
)

// NewNoop returns a Handle that discards everything, for mounts started
// with metrics disabled.
func NewNoop() Handle {
	var n noopHandle
	return &n
}

type noopHandle struct{}

func (*noopHandle) OpsCount(_ context.Context, _ int64, _ string)            {}
func (*noopHandle) OpsLatency(_ context.Context, _ time.Duration, _ string)  {}
func (*noopHandle) OpsErrorCount(_ context.Context, _ int64, _, _ string)    {}
func (*noopHandle) KVCallCount(_ context.Context, _ int64, _ string)         {}
func (*noopHandle) KVCallLatency(_ context.Context, _ time.Duration, _ string) {}
func (*noopHandle) SetStatFS(_, _, _ uint64)                                 {}
