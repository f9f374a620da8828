package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupReturnsWorkingHandleAndShutdown(t *testing.T) {
	handle, shutdown, err := Setup("127.0.0.1:0")
	require.NoError(t, err)
	require.NotNil(t, handle)
	require.NotNil(t, shutdown)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		handle.OpsCount(ctx, 1, "read_file")
	})

	// Give the background listener goroutine a moment to start before we
	// tear it down, so Shutdown has something to stop.
	time.Sleep(10 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	assert.NoError(t, shutdown(shutdownCtx))
}
