package fsbridge

import (
	"context"
	"sync"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/kvfuse-project/kvfuse/internal/engine"
	"github.com/kvfuse-project/kvfuse/internal/logger"
	"github.com/kvfuse-project/kvfuse/internal/metrics"
)

// FS dispatches fuseops onto an engine.Facade. It embeds
// fuseutil.NotImplementedFileSystem so that any op this type does not
// override responds ENOSYS, the same pattern the teacher's fs.fileSystem
// uses for GCS operations it does not support.
type FS struct {
	fuseutil.NotImplementedFileSystem

	facade  *engine.Facade
	metrics metrics.Handle

	mu         sync.Mutex
	dirHandles map[fuseops.HandleID]*dirHandle
	nextHandle fuseops.HandleID
}

type dirHandle struct {
	entries []fuseutil.Dirent
}

// New wraps facade for use with fuseutil.NewFileSystemServer. The root
// directory inode must already exist (see engine.Facade.EnsureRoot) before
// the file system is mounted. A nil metricHandle is replaced with a no-op.
func New(facade *engine.Facade, metricHandle metrics.Handle) *FS {
	if metricHandle == nil {
		metricHandle = metrics.NewNoop()
	}
	return &FS{
		facade:     facade,
		metrics:    metricHandle,
		dirHandles: make(map[fuseops.HandleID]*dirHandle),
		nextHandle: 1,
	}
}

// recordOp times fn, then reports its op count/latency/error to the
// configured metrics.Handle, mirroring the teacher's fs.fileSystem pattern
// of wrapping each op body with OpsCount/OpsLatency/OpsErrorCount calls.
func (fs *FS) recordOp(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	fs.metrics.OpsCount(ctx, 1, op)
	fs.metrics.OpsLatency(ctx, time.Since(start), op)
	if err != nil {
		fs.metrics.OpsErrorCount(ctx, 1, op, errorCategory(err))
	}
	return err
}

func (fs *FS) Init(op *fuseops.InitOp) (err error) {
	logger.Infof("fuse init: protocol version negotiated")
	return nil
}
